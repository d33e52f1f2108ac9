package lunchscore

import (
	"strings"
	"testing"
	"time"

	"sjrako-backend/lib/scrapers/sjrako"

	"github.com/stretchr/testify/require"
)

const testDataset = `lunch_name,taste,meatiness,sweetness
kuřecí řízek smažený bramborová kaše,89,86,0
dukátové buchtičky s krémem,95,0,90
špenát brambory vejce,40,10,0
`

func testOracle(t *testing.T) *DatasetOracle {
	t.Helper()
	oracle, err := NewDatasetOracle(strings.NewReader(testDataset))
	require.NoError(t, err)
	return oracle
}

func TestNewDatasetOracle(t *testing.T) {
	oracle := testOracle(t)
	require.Equal(t, []string{"taste", "meatiness", "sweetness"}, oracle.TraitNames())

	_, err := NewDatasetOracle(strings.NewReader("dish,taste\nx,50\n"))
	require.ErrorContains(t, err, "lunch_name")

	_, err = NewDatasetOracle(strings.NewReader("lunch_name,taste\nx,tasty\n"))
	require.ErrorContains(t, err, "unreadable")
}

func TestScoreExactName(t *testing.T) {
	oracle := testOracle(t)
	traits, err := oracle.Score("kuřecí řízek smažený bramborová kaše")
	require.NoError(t, err)
	require.Equal(t, Traits{"taste": 89, "meatiness": 86, "sweetness": 0}, traits)
}

func TestScoreFoldsDiacritics(t *testing.T) {
	oracle := testOracle(t)
	traits, err := oracle.Score("kureci rizek smazeny bramborova kase")
	require.NoError(t, err)
	require.Equal(t, 89, traits["taste"])
}

func TestScoreMatchesMisspelledWords(t *testing.T) {
	oracle := testOracle(t)
	// inflected and misspelled forms still hit the rated dish
	traits, err := oracle.Score("kuřecí řízky smaženy s bramborovou kaší")
	require.NoError(t, err)
	require.Equal(t, 89, traits["taste"])
	require.Equal(t, 86, traits["meatiness"])
}

func TestScoreUnknownName(t *testing.T) {
	oracle := testOracle(t)
	traits, err := oracle.Score("xylofon")
	require.NoError(t, err)
	require.Equal(t, Traits{"taste": 0, "meatiness": 0, "sweetness": 0}, traits)
}

func TestScoreIsDeterministic(t *testing.T) {
	oracle := testOracle(t)
	first, err := oracle.Score("dukátové buchtičky s krémem")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := oracle.Score("dukátové buchtičky s krémem")
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func menuOf(t *testing.T, dishes ...string) sjrako.LunchMenu {
	t.Helper()
	date := sjrako.Date{Year: 2024, Month: time.November, Day: 25}
	var lunches []sjrako.Lunch
	for i, dish := range dishes {
		lunches = append(lunches, sjrako.NewLunch(date, i+1, "polévka", dish))
	}
	menu, err := sjrako.NewLunchMenu(lunches)
	require.NoError(t, err)
	return menu
}

func TestSelectBest(t *testing.T) {
	oracle := testOracle(t)
	menu := menuOf(t,
		"špenát brambory vejce",
		"dukátové buchtičky s krémem",
		"kuřecí řízek smažený bramborová kaše",
	)

	// on taste alone the sweet dish wins
	best, found, err := SelectBest(oracle, menu, Options{MinScore: 50})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 2, best.Number)

	// a meatiness bonus flips the pick: 89 + 86*0.2 > 95
	best, found, err = SelectBest(oracle, menu, Options{
		MinScore: 50,
		Weights:  map[string]float64{"meatiness": 0.2},
	})
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 3, best.Number)
}

func TestSelectBestSkipsBadDays(t *testing.T) {
	oracle := testOracle(t)
	menu := menuOf(t, "špenát brambory vejce", "xylofon")

	_, found, err := SelectBest(oracle, menu, Options{MinScore: 50})
	require.NoError(t, err)
	require.False(t, found)
}
