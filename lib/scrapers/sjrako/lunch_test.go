package sjrako

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testDate = Date{Year: 2024, Month: time.November, Day: 25}

func TestNewLunchNormalizes(t *testing.T) {
	lunch := NewLunch(testDate, 1, " Polévka hovězí ", `Kuřecí řízek, brambor; "Oběd pro studenta 1"`)
	require.Equal(t, "polévka hovězí", lunch.Soup)
	require.Equal(t, "kuřecí řízek brambor", lunch.MainDish)
}

func TestNewLunchMenuSharedSoup(t *testing.T) {
	menu, err := NewLunchMenu([]Lunch{
		{Date: testDate, Number: 1, Soup: "soup A", MainDish: "dukátové buchtičky s krémem"},
		{Date: testDate, Number: 2, Soup: "soup A", MainDish: "rybí prsty smažené"},
	})
	require.NoError(t, err)
	require.Equal(t, "soup A", menu.SharedSoup)
	require.Equal(t, "", menu.SharedDish)
	require.Equal(t, "soup A", menu.Lunches[0].Soup)
	require.Equal(t, "dukátové buchtičky s krémem", menu.Lunches[0].MainDish)
}

func TestNewLunchMenuSharedDishEnding(t *testing.T) {
	menu, err := NewLunchMenu([]Lunch{
		{Date: testDate, Number: 2, Soup: "gulášová", MainDish: "smažený sýr a bramborová kaše"},
		{Date: testDate, Number: 1, Soup: "gulášová", MainDish: "kuřecí řízek a bramborová kaše"},
		{Date: testDate, Number: 3, Soup: "gulášová", MainDish: "rybí filé a bramborová kaše"},
	})
	require.NoError(t, err)
	require.Equal(t, "a bramborová kaše", menu.SharedDish)

	// sorted by number, endings stripped
	require.Equal(t, 1, menu.Lunches[0].Number)
	require.Equal(t, "kuřecí řízek", menu.Lunches[0].MainDish)
	require.Equal(t, "smažený sýr", menu.Lunches[1].MainDish)
	require.Equal(t, "rybí filé", menu.Lunches[2].MainDish)

	require.Equal(t, "kuřecí řízek a bramborová kaše", menu.FullMainDish(menu.Lunches[0]))
}

func TestNewLunchMenuRepairsSoupBoundary(t *testing.T) {
	// lunch 2's separator went missing on the portal, its soup swallowed
	// the start of the main dish
	menu, err := NewLunchMenu([]Lunch{
		{Date: testDate, Number: 1, Soup: "hovězí vývar s nudlemi", MainDish: "dukátové buchtičky s krémem"},
		{Date: testDate, Number: 2, Soup: "hovězí vývar s nudlemi rybí prsty", MainDish: "smažené"},
	})
	require.NoError(t, err)
	require.Equal(t, "hovězí vývar s nudlemi", menu.SharedSoup)
	require.Equal(t, "rybí prsty smažené", menu.Lunches[1].MainDish)
}

func TestNewLunchMenuStatusFlags(t *testing.T) {
	menu, err := NewLunchMenu([]Lunch{
		{Date: testDate, Number: 1, Soup: "s", MainDish: "a", CanBeChanged: true},
		{Date: testDate, Number: 2, Soup: "s", MainDish: "b", CanBeChanged: true, IsOrdered: true},
	})
	require.NoError(t, err)
	require.True(t, menu.CanBeChanged)
	require.NotNil(t, menu.OrderedLunch)
	require.Equal(t, 2, menu.OrderedLunch.Number)

	lunch, found := menu.Lunch(2)
	require.True(t, found)
	require.True(t, lunch.IsOrdered)
	_, found = menu.Lunch(3)
	require.False(t, found)
}

func TestNewLunchMenuRejectsCorruptInput(t *testing.T) {
	otherDate := testDate.AddDays(1)

	cases := []struct {
		name    string
		lunches []Lunch
	}{
		{"empty", nil},
		{"mixed dates", []Lunch{
			{Date: testDate, Number: 1, Soup: "s", MainDish: "a"},
			{Date: otherDate, Number: 2, Soup: "s", MainDish: "b"},
		}},
		{"duplicate numbers", []Lunch{
			{Date: testDate, Number: 1, Soup: "s", MainDish: "a"},
			{Date: testDate, Number: 1, Soup: "s", MainDish: "b"},
		}},
		{"number out of range", []Lunch{
			{Date: testDate, Number: 4, Soup: "s", MainDish: "a"},
		}},
		{"two ordered lunches", []Lunch{
			{Date: testDate, Number: 1, Soup: "s", MainDish: "a", IsOrdered: true},
			{Date: testDate, Number: 2, Soup: "s", MainDish: "b", IsOrdered: true},
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewLunchMenu(c.lunches)
			require.ErrorIs(t, err, ErrCorruptData)
		})
	}
}
