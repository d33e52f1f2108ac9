package sjrako

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
)

type lunchJSON struct {
	LunchNumber int    `json:"lunchNumber"`
	Soup        string `json:"soup,omitempty"`
	MainDish    string `json:"mainDish"`
}

type lunchMenuJSON struct {
	Date       string      `json:"date"`
	SharedSoup string      `json:"sharedSoup,omitempty"`
	SharedDish string      `json:"sharedDish,omitempty"`
	Lunches    []lunchJSON `json:"lunches"`
}

type snapshotJSON struct {
	LunchMenus []lunchMenuJSON `json:"lunchMenus"`
}

// SaveLunchMenus writes the menus to path as a JSON snapshot, ordered
// by date. Soups identical across a menu are stored once as sharedSoup
// and main-dish endings once as sharedDish.
func SaveLunchMenus(menus []LunchMenu, path string) error {
	menus = slices.Clone(menus)
	slices.SortFunc(menus, func(a, b LunchMenu) int {
		return a.Date.Compare(b.Date)
	})

	snapshot := snapshotJSON{LunchMenus: []lunchMenuJSON{}}
	for _, menu := range menus {
		entry := lunchMenuJSON{
			Date:       menu.Date.ISO(),
			SharedSoup: menu.SharedSoup,
			SharedDish: menu.SharedDish,
		}
		for _, lunch := range menu.Lunches {
			lunchEntry := lunchJSON{
				LunchNumber: lunch.Number,
				MainDish:    lunch.MainDish,
			}
			if menu.SharedSoup == "" {
				lunchEntry.Soup = lunch.Soup
			}
			entry.Lunches = append(entry.Lunches, lunchEntry)
		}
		snapshot.LunchMenus = append(snapshot.LunchMenus, entry)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadLunchMenus reads a snapshot written by SaveLunchMenus, expanding
// the shared soup and dish fields back onto the individual lunches.
func LoadLunchMenus(path string) ([]LunchMenu, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var snapshot snapshotJSON
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}

	var menus []LunchMenu
	for _, entry := range snapshot.LunchMenus {
		date, err := ParseISO(entry.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}

		var lunches []Lunch
		for _, lunchEntry := range entry.Lunches {
			soup := lunchEntry.Soup
			if entry.SharedSoup != "" {
				soup = entry.SharedSoup
			}
			lunches = append(lunches, Lunch{
				Date:     date,
				Number:   lunchEntry.LunchNumber,
				Soup:     soup,
				MainDish: strings.TrimSpace(lunchEntry.MainDish + " " + entry.SharedDish),
			})
		}

		menu, err := NewLunchMenu(lunches)
		if err != nil {
			return nil, fmt.Errorf("snapshot entry for %s: %w", entry.Date, err)
		}
		menus = append(menus, menu)
	}
	return menus, nil
}
