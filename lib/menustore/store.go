// Package menustore archives lunch menus in a sql database so menus
// that have rolled off the portal stay queryable.
package menustore

import (
	"context"
	"database/sql"
	"encoding/csv"
	"io"
	"log/slog"

	"sjrako-backend/lib/scrapers/sjrako"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Archive upserts the menus, replacing any previously archived menu of
// the same date. Shared soups and dish endings are stored expanded so
// the rows are queryable on their own.
func (s Store) Archive(ctx context.Context, menus []sjrako.LunchMenu) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, menu := range menus {
		_, err = tx.ExecContext(ctx, `
DELETE FROM lunch WHERE menu_id IN (SELECT id FROM lunch_menu WHERE date = ?)`,
			menu.Date.ISO())
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM lunch_menu WHERE date = ?`, menu.Date.ISO())
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO lunch_menu (date) VALUES (?)`, menu.Date.ISO())
		if err != nil {
			return err
		}
		menuId, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for _, lunch := range menu.Lunches {
			_, err = tx.ExecContext(ctx, `
INSERT INTO lunch (menu_id, number, soup, main_dish) VALUES (?, ?, ?, ?)`,
				menuId, lunch.Number, lunch.Soup, menu.FullMainDish(lunch))
			if err != nil {
				return err
			}
		}
	}

	err = tx.Commit()
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "archived lunch menus", slog.Int("count", len(menus)))
	return nil
}

// Menus returns the archived menus in the inclusive date range, sorted
// by date.
func (s Store) Menus(ctx context.Context, from, to sjrako.Date) ([]sjrako.LunchMenu, error) {
	if from.After(to) {
		from, to = to, from
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT m.date, l.number, l.soup, l.main_dish
FROM lunch_menu m JOIN lunch l ON l.menu_id = m.id
WHERE m.date >= ? AND m.date <= ?
ORDER BY m.date, l.number`,
		from.ISO(), to.ISO())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var menus []sjrako.LunchMenu
	var pending []sjrako.Lunch
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		menu, err := sjrako.NewLunchMenu(pending)
		if err != nil {
			return err
		}
		menus = append(menus, menu)
		pending = nil
		return nil
	}

	for rows.Next() {
		var iso, soup, mainDish string
		var number int
		if err := rows.Scan(&iso, &number, &soup, &mainDish); err != nil {
			return nil, err
		}
		date, err := sjrako.ParseISO(iso)
		if err != nil {
			return nil, err
		}
		if len(pending) > 0 && pending[0].Date != date {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		pending = append(pending, sjrako.Lunch{
			Date:     date,
			Number:   number,
			Soup:     soup,
			MainDish: mainDish,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return menus, nil
}

// Dishes returns every distinct archived main dish, expanded form,
// sorted alphabetically. Useful as raw material for rating datasets.
func (s Store) Dishes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT main_dish FROM lunch ORDER BY main_dish`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dishes []string
	for rows.Next() {
		var dish string
		if err := rows.Scan(&dish); err != nil {
			return nil, err
		}
		dishes = append(dishes, dish)
	}
	return dishes, rows.Err()
}

// WriteDishesCSV writes the distinct archived dishes as a one-column
// CSV with a "lunch_name" header, the seed layout for a rating dataset.
func (s Store) WriteDishesCSV(ctx context.Context, w io.Writer) error {
	dishes, err := s.Dishes(ctx)
	if err != nil {
		return err
	}

	out := csv.NewWriter(w)
	if err := out.Write([]string{"lunch_name"}); err != nil {
		return err
	}
	for _, dish := range dishes {
		if err := out.Write([]string{dish}); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}
