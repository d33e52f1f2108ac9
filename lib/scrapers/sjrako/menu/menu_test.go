package menu

import (
	"context"
	"fmt"
	"testing"
	"time"

	"sjrako-backend/lib/pagedriver/drivertest"
	"sjrako-backend/lib/scrapers/sjrako"
	"sjrako-backend/lib/scrapers/sjrako/core"
	"sjrako-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cleanup := telemetry.SetupForTesting("sjrako-menu-test")
	defer cleanup()
	m.Run()
}

const testBaseUrl = "https://jidelna.example.test/login"

const loginForm = `
	<form action="/j_spring_security_check" method="post">
		<div id="login_menu">
			<input id="j_username" name="j_username" type="text">
			<input id="j_password" name="j_password" type="password">
			<input type="submit" value="Přihlásit">
		</div>
	</form>`

func listingDay(date sjrako.Date, dishes ...string) string {
	page := fmt.Sprintf(
		`<div class="jidelnicekDen"><div class="jidelnicekTop" id="day-%d-%d-%d">%s</div>`,
		date.Year, date.Month, date.Day, date,
	)
	for i, dish := range dishes {
		page += fmt.Sprintf(
			`<div class="container"><div class="jidelnicekItem">Oběd %d</div><div class="jidelnicekItem">%s</div></div>`,
			i+1, dish,
		)
	}
	return page + `</div>`
}

func listingPage(days ...string) string {
	page := `<html><head><title>Jídelníček - přihlášení</title></head><body>` + loginForm
	for _, day := range days {
		page += day
	}
	return page + `</body></html>`
}

type dayLunch struct {
	dish    string
	state   string
	ordered bool
}

func dayPage(lunches ...dayLunch) string {
	page := `<html><head><title>Jídelníček - objednání stravy</title></head><body>
		<span id="podsysFirstName">Jan</span>
		<span id="podsysLastName">Novák</span>
		<a id="logout" href="/logout">Odhlásit</a>`
	for i, lunch := range lunches {
		tick := ""
		if lunch.ordered {
			tick = `<span class="button-link-tick"></span>`
		}
		page += fmt.Sprintf(
			`<div class="jidelnicekItem">
				<div id="menu-%d">%s</div>
				<a id="order-%d" class="btn button-link %s">%sOběd %d za 35 Kč</a>
			</div>`,
			i+1, lunch.dish, i+1, lunch.state, tick, i+1,
		)
	}
	return page + `</body></html>`
}

// newPortal scripts a portal whose login form accepts any credentials
// and whose public listing shows the given days.
func newPortal(t *testing.T, listing string) (*drivertest.Driver, *core.Client, *Repository) {
	t.Helper()

	driver := drivertest.New()
	driver.SetPage(testBaseUrl, listing)
	driver.ClickHandler = func(d *drivertest.Driver, sel *goquery.Selection) error {
		if _, isSubmit := sel.Attr("type"); isSubmit {
			d.SetPage(testBaseUrl, dayPage())
			return d.Navigate(context.Background(), testBaseUrl)
		}
		return nil
	}

	client := core.NewClient(core.ClientOptions{Driver: driver, BaseUrl: testBaseUrl})
	return driver, client, NewRepository(client)
}

func dayUrl(t *testing.T, date sjrako.Date) string {
	t.Helper()
	url, err := core.URLWithParam(testBaseUrl, "day", date.ISO())
	require.NoError(t, err)
	return url
}

func TestGetLunchMenusCachesPerDay(t *testing.T) {
	ctx := context.Background()
	day1 := sjrako.Date{Year: 2024, Month: time.November, Day: 25}
	day2 := sjrako.Date{Year: 2024, Month: time.November, Day: 26}

	driver, _, repo := newPortal(t, listingPage(
		listingDay(day2, "česnečka ; svíčková na smetaně"),
		listingDay(day1,
			"gulášová ; kuřecí řízek a bramborová kaše",
			"gulášová ; smažený sýr a bramborová kaše",
		),
	))

	menus, err := repo.GetLunchMenus(ctx)
	require.NoError(t, err)
	require.Len(t, menus, 2)
	require.Equal(t, day1, menus[0].Date)
	require.Equal(t, day2, menus[1].Date)
	require.Equal(t, "gulášová", menus[0].SharedSoup)
	require.Len(t, menus[0].Lunches, 2)
	require.Equal(t, 1, driver.NavigationCount())

	// same calendar day, served from the cache
	_, err = repo.GetLunchMenus(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, driver.NavigationCount())
}

func TestGetLunchMenuPublic(t *testing.T) {
	ctx := context.Background()
	day := sjrako.Date{Year: 2024, Month: time.November, Day: 25}
	_, _, repo := newPortal(t, listingPage(listingDay(day, "česnečka ; svíčková")))

	menu, found, err := repo.GetLunchMenu(ctx, day)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, day, menu.Date)

	_, found, err = repo.GetLunchMenu(ctx, day.AddDays(1))
	require.NoError(t, err)
	require.False(t, found)
}

func TestGetLunchMenuAuthenticated(t *testing.T) {
	ctx := context.Background()
	day := sjrako.Date{Year: 2024, Month: time.November, Day: 25}
	driver, client, repo := newPortal(t, listingPage())

	require.NoError(t, client.Login(ctx, "student", "heslo"))
	driver.SetPage(dayUrl(t, day), dayPage(
		dayLunch{dish: "gulášová ; kuřecí řízek", state: "enabled"},
		dayLunch{dish: "gulášová ; smažený sýr", state: "ordered", ordered: true},
	))

	menu, found, err := repo.GetLunchMenu(ctx, day)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, menu.CanBeChanged)
	require.NotNil(t, menu.OrderedLunch)
	require.Equal(t, 2, menu.OrderedLunch.Number)
	require.Equal(t, "gulášová", menu.SharedSoup)

	// cached until invalidated
	fetches := driver.NavigationCount()
	_, _, err = repo.GetLunchMenu(ctx, day)
	require.NoError(t, err)
	require.Equal(t, fetches, driver.NavigationCount())

	repo.Invalidate(day)
	_, _, err = repo.GetLunchMenu(ctx, day)
	require.NoError(t, err)
	require.Equal(t, fetches+1, driver.NavigationCount())
}

func TestGetAllLunchMenusBetween(t *testing.T) {
	ctx := context.Background()
	day1 := sjrako.Date{Year: 2024, Month: time.November, Day: 25}
	day2 := day1.AddDays(1)
	day3 := day1.AddDays(2)
	driver, client, repo := newPortal(t, listingPage())

	_, err := repo.GetAllLunchMenusBetween(ctx, day1, day3)
	require.ErrorIs(t, err, sjrako.ErrAuthenticationRequired)

	require.NoError(t, client.Login(ctx, "student", "heslo"))
	driver.SetPage(dayUrl(t, day1), dayPage(dayLunch{dish: "česnečka ; svíčková", state: "enabled"}))
	driver.SetPage(dayUrl(t, day2), dayPage())
	driver.SetPage(dayUrl(t, day3), dayPage(dayLunch{dish: "gulášová ; rybí filé", state: "enabled"}))

	// reversed bounds, the day without a menu is skipped
	menus, err := repo.GetAllLunchMenusBetween(ctx, day3, day1)
	require.NoError(t, err)
	require.Len(t, menus, 2)
	require.Equal(t, day1, menus[0].Date)
	require.Equal(t, day3, menus[1].Date)
}

func TestChangeableDates(t *testing.T) {
	ctx := context.Background()
	today := sjrako.Today()
	near := today.AddDays(2)
	far := today.AddDays(3)

	_, _, repo := newPortal(t, listingPage(
		listingDay(today, "česnečka ; svíčková"),
		listingDay(near, "gulášová ; kuřecí řízek"),
		listingDay(far, "frankfurtská ; rybí filé"),
	))

	dates, err := repo.ChangeableDates(ctx)
	require.NoError(t, err)
	require.Equal(t, []sjrako.Date{near, far}, dates)

	last, found, err := repo.LastChangeableDate(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, far, last)
}

func TestListingNumberMismatch(t *testing.T) {
	ctx := context.Background()
	day := sjrako.Date{Year: 2024, Month: time.November, Day: 25}
	listing := listingPage(
		`<div class="jidelnicekDen"><div class="jidelnicekTop" id="day-2024-11-25">x</div>` +
			`<div class="container"><div class="jidelnicekItem">Oběd 2</div>` +
			`<div class="jidelnicekItem">česnečka ; svíčková</div></div></div>`,
	)
	_, _, repo := newPortal(t, listing)

	_, _, err := repo.GetLunchMenu(ctx, day)
	require.ErrorIs(t, err, sjrako.ErrUnexpectedPage)
}
