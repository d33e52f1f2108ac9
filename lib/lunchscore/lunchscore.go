// Package lunchscore rates lunches by name against a hand-labeled
// dataset and picks the best option off a menu.
package lunchscore

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"sjrako-backend/lib/scrapers/sjrako"
	"sjrako-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

// Traits maps a trait name like "taste" or "meatiness" to a 0..100
// score.
type Traits map[string]int

// Oracle scores a lunch by its dish name.
type Oracle interface {
	Score(lunchName string) (Traits, error)
}

// a dataset word this similar to an unknown word is considered a
// misspelling or an inflected form of it
const wordMatchThreshold = 0.8

const datasetNameColumn = "lunch_name"

type datasetEntry struct {
	words  map[string]struct{}
	traits Traits
}

// DatasetOracle scores lunches against a CSV dataset of rated dishes.
// Unknown words are mapped onto the dataset vocabulary first, by
// diacritics folding and then by string similarity, so misspellings
// and inflected endings on the portal still hit the rated dishes.
// Scoring is deterministic: the same name always gets the same traits.
type DatasetOracle struct {
	traitNames []string
	entries    []datasetEntry
	vocab      []string
	folded     map[string]string
}

// LoadDatasetOracle reads a dataset CSV with a "lunch_name" column and
// one column per trait.
func LoadDatasetOracle(path string) (*DatasetOracle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return NewDatasetOracle(file)
}

func NewDatasetOracle(r io.Reader) (*DatasetOracle, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("the dataset has no entries")
	}

	header := rows[0]
	nameColumn := -1
	var traitNames []string
	for i, column := range header {
		if column == datasetNameColumn {
			nameColumn = i
			continue
		}
		traitNames = append(traitNames, column)
	}
	if nameColumn < 0 {
		return nil, fmt.Errorf("the dataset has no %q column", datasetNameColumn)
	}

	oracle := &DatasetOracle{
		traitNames: traitNames,
		folded:     map[string]string{},
	}
	seen := map[string]struct{}{}
	for _, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("dataset row %q does not match the header", strings.Join(row, ","))
		}

		entry := datasetEntry{
			words:  map[string]struct{}{},
			traits: Traits{},
		}
		for _, word := range strings.Fields(normalizeName(row[nameColumn])) {
			entry.words[word] = struct{}{}
			if _, found := seen[word]; !found {
				seen[word] = struct{}{}
				oracle.vocab = append(oracle.vocab, word)
				oracle.folded[textutil.FoldDiacritics(word)] = word
			}
		}
		if len(entry.words) == 0 {
			continue
		}

		column := 0
		for i, value := range row {
			if i == nameColumn {
				continue
			}
			score, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset entry %q has an unreadable %s score: %w",
					row[nameColumn], traitNames[column], err)
			}
			entry.traits[traitNames[column]] = clampScore(score)
			column++
		}
		oracle.entries = append(oracle.entries, entry)
	}
	return oracle, nil
}

// TraitNames returns the traits every score carries.
func (o *DatasetOracle) TraitNames() []string {
	return o.traitNames
}

// Score rates a lunch name by the dataset entry sharing the most
// vocabulary with it. A name with no recognizable words scores zero on
// every trait.
func (o *DatasetOracle) Score(lunchName string) (Traits, error) {
	matched := map[string]struct{}{}
	for _, word := range strings.Fields(normalizeName(lunchName)) {
		if vocabWord := o.matchWord(word); vocabWord != "" {
			matched[vocabWord] = struct{}{}
		}
	}

	zero := Traits{}
	for _, trait := range o.traitNames {
		zero[trait] = 0
	}
	if len(matched) == 0 {
		return zero, nil
	}

	best, bestSimilarity := zero, 0.0
	for _, entry := range o.entries {
		similarity := jaccard(matched, entry.words)
		if similarity > bestSimilarity {
			best, bestSimilarity = entry.traits, similarity
		}
	}
	return best, nil
}

// matchWord maps a word onto the dataset vocabulary: exact first, then
// diacritics-insensitive, then by similarity.
func (o *DatasetOracle) matchWord(word string) string {
	if _, found := o.folded[textutil.FoldDiacritics(word)]; found {
		return o.folded[textutil.FoldDiacritics(word)]
	}

	bestWord, bestSimilarity := "", 0.0
	for _, vocabWord := range o.vocab {
		similarity := matchr.JaroWinkler(word, vocabWord, false)
		if similarity > bestSimilarity {
			bestWord, bestSimilarity = vocabWord, similarity
		}
	}
	if bestSimilarity >= wordMatchThreshold {
		return bestWord
	}
	return ""
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for word := range a {
		if _, found := b[word]; found {
			intersection++
		}
	}
	return float64(intersection) / float64(len(a)+len(b)-intersection)
}

var allowedNameChars = map[rune]struct{}{}

func init() {
	for _, c := range "abcdefghijklmnopqrstuvwxyzáäéëíóöúůýčďěňřšťž -." {
		allowedNameChars[c] = struct{}{}
	}
}

func normalizeName(name string) string {
	var out strings.Builder
	for _, c := range strings.ToLower(name) {
		if _, allowed := allowedNameChars[c]; allowed {
			out.WriteRune(c)
		}
	}
	return strings.TrimSpace(out.String())
}

func clampScore(score float64) int {
	return int(math.Round(math.Min(100, math.Max(0, score))))
}

// Options steers SelectBest. The score trait is the primary rating;
// weighted traits add (or subtract) points on top of it without
// affecting the minimum-score cutoff.
type Options struct {
	// defaults to "taste"
	ScoreTrait string
	// lunches scoring below this on the score trait are never picked
	MinScore int
	Weights  map[string]float64
}

// SelectBest picks the highest scoring lunch off the menu, or false
// when no lunch reaches the minimum score and the day is better
// skipped.
func SelectBest(oracle Oracle, menu sjrako.LunchMenu, opts Options) (sjrako.Lunch, bool, error) {
	scoreTrait := opts.ScoreTrait
	if scoreTrait == "" {
		scoreTrait = "taste"
	}

	var best sjrako.Lunch
	found := false
	bestPoints := math.Inf(-1)
	for _, lunch := range menu.Lunches {
		traits, err := oracle.Score(menu.FullMainDish(lunch))
		if err != nil {
			return sjrako.Lunch{}, false, err
		}
		if traits[scoreTrait] < opts.MinScore {
			continue
		}
		points := float64(traits[scoreTrait])
		for trait, weight := range opts.Weights {
			points += weight * float64(traits[trait])
		}
		if points > bestPoints {
			best, found, bestPoints = lunch, true, points
		}
	}
	return best, found, nil
}
