package menustore

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"sjrako-backend/lib/menustore/db"
	"sjrako-backend/lib/scrapers/sjrako"
	"sjrako-backend/lib/telemetry"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newStore(t *testing.T) Store {
	t.Helper()

	sqlite, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	_, err = sqlite.Exec(db.Schema)
	require.NoError(t, err)

	return NewStore(sqlite)
}

func mustMenu(t *testing.T, lunches []sjrako.Lunch) sjrako.LunchMenu {
	t.Helper()
	menu, err := sjrako.NewLunchMenu(lunches)
	require.NoError(t, err)
	return menu
}

func TestStore(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:menustore")
	defer cleanup()
	ctx := context.Background()
	store := newStore(t)

	day1 := sjrako.Date{Year: 2024, Month: time.November, Day: 25}
	day2 := sjrako.Date{Year: 2024, Month: time.November, Day: 26}
	menus := []sjrako.LunchMenu{
		mustMenu(t, []sjrako.Lunch{
			{Date: day1, Number: 1, Soup: "gulášová", MainDish: "kuřecí řízek a bramborová kaše"},
			{Date: day1, Number: 2, Soup: "gulášová", MainDish: "smažený sýr a bramborová kaše"},
		}),
		mustMenu(t, []sjrako.Lunch{
			{Date: day2, Number: 1, Soup: "česnečka", MainDish: "svíčková na smetaně"},
		}),
	}

	require.NoError(t, store.Archive(ctx, menus))

	loaded, err := store.Menus(ctx, day1, day2)
	require.NoError(t, err)
	require.Equal(t, menus, loaded)

	// a narrower range only returns what it covers, reversed bounds work
	loaded, err = store.Menus(ctx, day2, day2)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, day2, loaded[0].Date)

	dishes, err := store.Dishes(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{
		"kuřecí řízek a bramborová kaše",
		"smažený sýr a bramborová kaše",
		"svíčková na smetaně",
	}, dishes)

	var out strings.Builder
	require.NoError(t, store.WriteDishesCSV(ctx, &out))
	require.Equal(t, `lunch_name
kuřecí řízek a bramborová kaše
smažený sýr a bramborová kaše
svíčková na smetaně
`, out.String())
}

func TestArchiveReplacesExisting(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:menustore")
	defer cleanup()
	ctx := context.Background()
	store := newStore(t)

	day := sjrako.Date{Year: 2024, Month: time.November, Day: 25}
	require.NoError(t, store.Archive(ctx, []sjrako.LunchMenu{
		mustMenu(t, []sjrako.Lunch{
			{Date: day, Number: 1, Soup: "stará", MainDish: "staré jídlo"},
			{Date: day, Number: 2, Soup: "stará", MainDish: "jiné staré jídlo"},
		}),
	}))

	replacement := mustMenu(t, []sjrako.Lunch{
		{Date: day, Number: 1, Soup: "nová", MainDish: "nové jídlo"},
	})
	require.NoError(t, store.Archive(ctx, []sjrako.LunchMenu{replacement}))

	loaded, err := store.Menus(ctx, day, day)
	require.NoError(t, err)
	require.Equal(t, []sjrako.LunchMenu{replacement}, loaded)
}
