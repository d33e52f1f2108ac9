package sjrako

import (
	"fmt"
	"slices"
	"strings"

	"sjrako-backend/lib/textutil"
)

// Lunch is one numbered lunch option on a day's menu. IsOrdered is only
// meaningful when the menu was fetched through a logged-in session.
type Lunch struct {
	Date         Date
	Number       int
	Soup         string
	MainDish     string
	CanBeChanged bool
	IsOrdered    bool
}

// NewLunch builds a lunch with the scraped dish texts normalized.
// Status flags are set by the caller afterwards.
func NewLunch(date Date, number int, soup, mainDish string) Lunch {
	return Lunch{
		Date:     date,
		Number:   number,
		Soup:     textutil.NormalizeDish(soup),
		MainDish: textutil.NormalizeDish(mainDish),
	}
}

// LunchMenu is the full set of lunch options for one day, sorted by
// lunch number. SharedSoup is set when every lunch has the same soup.
// SharedDish is the common ending of every main dish; it is stripped
// from the individual MainDish fields, FullMainDish puts it back.
// Menus are never mutated after construction, a changed portal state
// produces a new menu value.
type LunchMenu struct {
	Date         Date
	Lunches      []Lunch
	OrderedLunch *Lunch
	CanBeChanged bool
	SharedSoup   string
	SharedDish   string
}

func NewLunchMenu(lunches []Lunch) (LunchMenu, error) {
	if len(lunches) == 0 {
		return LunchMenu{}, fmt.Errorf("%w: a menu needs at least one lunch", ErrCorruptData)
	}

	menu := LunchMenu{
		Date:    lunches[0].Date,
		Lunches: slices.Clone(lunches),
	}
	slices.SortFunc(menu.Lunches, func(a, b Lunch) int {
		return a.Number - b.Number
	})

	orderedCount := 0
	for i, lunch := range menu.Lunches {
		if lunch.Date != menu.Date {
			return LunchMenu{}, fmt.Errorf(
				"%w: lunch %d is dated %s, the rest of the menu %s",
				ErrCorruptData, lunch.Number, lunch.Date, menu.Date,
			)
		}
		if lunch.Number < 1 || lunch.Number > 3 {
			return LunchMenu{}, fmt.Errorf("%w: lunch number %d is out of range", ErrCorruptData, lunch.Number)
		}
		if i > 0 && lunch.Number == menu.Lunches[i-1].Number {
			return LunchMenu{}, fmt.Errorf("%w: duplicate lunch number %d", ErrCorruptData, lunch.Number)
		}
		if lunch.CanBeChanged {
			menu.CanBeChanged = true
		}
		if lunch.IsOrdered {
			orderedCount++
			menu.OrderedLunch = &menu.Lunches[i]
		}
	}
	if orderedCount > 1 {
		return LunchMenu{}, fmt.Errorf("%w: %d lunches are marked ordered on the same day", ErrCorruptData, orderedCount)
	}

	menu.SharedSoup = sharedSoup(menu.Lunches)
	if menu.SharedSoup == "" {
		// the portal sometimes misplaces the soup separator on one
		// line, making that soup swallow the start of its main dish
		repairSoupBoundary(menu.Lunches)
		menu.SharedSoup = sharedSoup(menu.Lunches)
	}

	menu.SharedDish = sharedDishEnding(menu.Lunches)
	if menu.SharedDish != "" {
		for i := range menu.Lunches {
			dish := strings.TrimSpace(strings.TrimSuffix(menu.Lunches[i].MainDish, menu.SharedDish))
			dish = strings.TrimSpace(strings.TrimSuffix(dish, ","))
			menu.Lunches[i].MainDish = dish
		}
	}

	return menu, nil
}

// Lunch returns the lunch with the given number.
func (m LunchMenu) Lunch(number int) (Lunch, bool) {
	for _, lunch := range m.Lunches {
		if lunch.Number == number {
			return lunch, true
		}
	}
	return Lunch{}, false
}

// FullMainDish is the lunch's main dish with the menu's shared ending
// restored.
func (m LunchMenu) FullMainDish(lunch Lunch) string {
	return strings.TrimSpace(lunch.MainDish + " " + m.SharedDish)
}

func sharedSoup(lunches []Lunch) string {
	for _, lunch := range lunches[1:] {
		if lunch.Soup != lunches[0].Soup {
			return ""
		}
	}
	return lunches[0].Soup
}

// repairSoupBoundary re-splits the lunch whose soup text ran past the
// soup boundary. It only acts when every soup is a prefix of the
// longest one, the common prefix of all soups is then the real soup.
func repairSoupBoundary(lunches []Lunch) {
	longest := 0
	for i, lunch := range lunches {
		if len(lunch.Soup) > len(lunches[longest].Soup) {
			longest = i
		}
	}
	for _, lunch := range lunches {
		if !strings.HasPrefix(lunches[longest].Soup, lunch.Soup) {
			return
		}
	}

	soups := make([][]rune, len(lunches))
	for i, lunch := range lunches {
		soups[i] = []rune(lunch.Soup)
	}
	boundary := 0
	for boundary < len(soups[0]) {
		same := true
		for _, soup := range soups[1:] {
			if boundary >= len(soup) || soup[boundary] != soups[0][boundary] {
				same = false
				break
			}
		}
		if !same {
			break
		}
		boundary++
	}

	combined := []rune(strings.ReplaceAll(
		lunches[longest].Soup+" "+lunches[longest].MainDish, "  ", " ",
	))
	lunches[longest].Soup = strings.TrimSpace(string(combined[:boundary]))
	lunches[longest].MainDish = strings.TrimSpace(string(combined[boundary:]))
}

// sharedDishEnding finds the longest word sequence every main dish
// ends with.
func sharedDishEnding(lunches []Lunch) string {
	words := make([][]string, len(lunches))
	for i, lunch := range lunches {
		words[i] = strings.Split(lunch.MainDish, " ")
	}

	var shared []string
	for offset := 1; ; offset++ {
		word := ""
		for i, dish := range words {
			if offset > len(dish) {
				return strings.Join(shared, " ")
			}
			w := dish[len(dish)-offset]
			if i == 0 {
				word = w
			} else if w != word {
				return strings.Join(shared, " ")
			}
		}
		shared = append([]string{word}, shared...)
	}
}
