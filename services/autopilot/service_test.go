package autopilot

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"sjrako-backend/lib/lunchscore"
	"sjrako-backend/lib/pagedriver"
	"sjrako-backend/lib/pagedriver/drivertest"
	"sjrako-backend/lib/scrapers/sjrako"
	"sjrako-backend/lib/scrapers/sjrako/core"
	"sjrako-backend/lib/scrapers/sjrako/menu"
	"sjrako-backend/lib/scrapers/sjrako/order"
	"sjrako-backend/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	cleanup := telemetry.SetupForTesting("autopilot-test")
	defer cleanup()
	m.Run()
}

const testBaseUrl = "https://jidelna.example.test/login"

type stubOracle struct {
	scores map[string]lunchscore.Traits
}

func (o stubOracle) Score(lunchName string) (lunchscore.Traits, error) {
	if traits, found := o.scores[lunchName]; found {
		return traits, nil
	}
	return lunchscore.Traits{"taste": 0}, nil
}

const pageHeader = `
	<span id="podsysFirstName">Jan</span>
	<span id="podsysLastName">Novák</span>
	<div id="kreditInclude">
		<span class="topMenuItem"> 500 Kč </span>
		<span class="topMenuItem"> 120 Kč </span>
	</div>`

func listingDay(date sjrako.Date, dishes ...string) string {
	page := fmt.Sprintf(
		`<div class="jidelnicekDen"><div class="jidelnicekTop" id="day-%d-%d-%d">%s</div>`,
		date.Year, date.Month, date.Day, date,
	)
	for i, dish := range dishes {
		page += fmt.Sprintf(
			`<div class="container"><div class="jidelnicekItem">Oběd %d</div><div class="jidelnicekItem">polévka ; %s</div></div>`,
			i+1, dish,
		)
	}
	return page + `</div>`
}

func basePage(title string, days ...string) string {
	page := `<html><head><title>Jídelníček - ` + title + `</title></head><body>` + pageHeader + `
		<form action="/j_spring_security_check" method="post">
			<div id="login_menu">
				<input id="j_username" name="j_username" type="text">
				<input id="j_password" name="j_password" type="password">
				<input type="submit" value="Přihlásit">
			</div>
		</form>`
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
	page := `<html><head><title>Jídelníček - objednání stravy</title></head><body>` + pageHeader
	for i, lunch := range lunches {
		tick := ""
		if lunch.ordered {
			tick = `<span class="button-link-tick"></span>`
		}
		page += fmt.Sprintf(
			`<div class="jidelnicekItem">
				<div id="menu-%d">polévka ; %s</div>
				<a id="order-%d" class="btn button-link %s">%sOběd %d za 35 Kč</a>
			</div>`,
			i+1, lunch.dish, i+1, lunch.state, tick, i+1,
		)
	}
	return page + `</body></html>`
}

func dayUrl(t *testing.T, date sjrako.Date) string {
	t.Helper()
	url, err := core.URLWithParam(testBaseUrl, "day", date.ISO())
	require.NoError(t, err)
	return url
}

func newAutopilot(t *testing.T, oracle lunchscore.Oracle, config Config, listing ...string) (*drivertest.Driver, *core.Client, Service) {
	t.Helper()

	driver := drivertest.New()
	driver.SetPage(testBaseUrl, basePage("přihlášení", listing...))
	driver.ClickHandler = func(d *drivertest.Driver, sel *goquery.Selection) error {
		if goquery.NodeName(sel) == "input" {
			d.SetPage(testBaseUrl, basePage("objednání stravy", listing...))
			return d.Navigate(context.Background(), testBaseUrl)
		}
		return nil
	}

	client := core.NewClient(core.ClientOptions{Driver: driver, BaseUrl: testBaseUrl})
	menus := menu.NewRepository(client)
	orders := order.NewController(client, menus)
	return driver, client, NewService(client, menus, orders, oracle, config)
}

// orderOnClick rewires the current day page when an order anchor is
// clicked, like the portal does.
func orderOnClick(driver *drivertest.Driver, pages map[string]string) {
	base := driver.ClickHandler
	driver.ClickHandler = func(d *drivertest.Driver, sel *goquery.Selection) error {
		id := sel.AttrOr("id", "")
		if !strings.HasPrefix(id, "order-") {
			return base(d, sel)
		}
		if next, scripted := pages[d.CurrentURL()+"#"+id]; scripted {
			d.SetPage(d.CurrentURL(), next)
		}
		return nil
	}
}

func TestRunRequiresAuthentication(t *testing.T) {
	_, _, service := newAutopilot(t, stubOracle{}, Config{MinScore: 50})
	_, err := service.Run(context.Background())
	require.ErrorIs(t, err, sjrako.ErrAuthenticationRequired)
}

func TestRunOrdersAndSkips(t *testing.T) {
	ctx := context.Background()
	day1 := sjrako.Today().AddDays(2)
	day2 := sjrako.Today().AddDays(3)

	oracle := stubOracle{scores: map[string]lunchscore.Traits{
		"dobré jídlo":  {"taste": 80},
		"lepší jídlo":  {"taste": 90},
		"špatné jídlo": {"taste": 30},
	}}
	driver, client, service := newAutopilot(t, oracle, Config{MinScore: 50},
		listingDay(day1, "dobré jídlo", "lepší jídlo"),
		listingDay(day2, "špatné jídlo"),
	)
	require.NoError(t, client.Login(ctx, "student", "heslo"))

	url1, url2 := dayUrl(t, day1), dayUrl(t, day2)
	driver.SetPage(url1, dayPage(
		dayLunch{dish: "dobré jídlo", state: "enabled"},
		dayLunch{dish: "lepší jídlo", state: "enabled"},
	))
	driver.SetPage(url2, dayPage(
		dayLunch{dish: "špatné jídlo", state: "ordered", ordered: true},
	))
	orderOnClick(driver, map[string]string{
		url1 + "#order-2": dayPage(
			dayLunch{dish: "dobré jídlo", state: "enabled"},
			dayLunch{dish: "lepší jídlo", state: "ordered", ordered: true},
		),
		url2 + "#order-1": dayPage(
			dayLunch{dish: "špatné jídlo", state: "enabled"},
		),
	})

	report, err := service.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, "student", report.User)
	require.NotEmpty(t, report.RunId)
	require.Equal(t, 500.0, report.CreditBefore)
	require.Equal(t, 500.0, report.CreditAfter)

	require.Equal(t, []OrderedLunch{{Date: day1, Number: 2, Dish: "lepší jídlo"}}, report.Ordered)
	require.Equal(t, []sjrako.Date{day2}, report.Skipped)
	require.Empty(t, report.Failed)

	summary := report.Summary()
	require.Contains(t, summary, "lepší jídlo")
	require.Contains(t, summary, day2.String())
}

func TestRunReportsFailures(t *testing.T) {
	ctx := context.Background()
	day := sjrako.Today().AddDays(2)

	oracle := stubOracle{scores: map[string]lunchscore.Traits{
		"dobré jídlo": {"taste": 80},
	}}
	driver, client, service := newAutopilot(t, oracle, Config{MinScore: 50},
		listingDay(day, "dobré jídlo"),
	)
	require.NoError(t, client.Login(ctx, "student", "heslo"))
	driver.FailNavigate(dayUrl(t, day), fmt.Errorf("%w: connection reset", pagedriver.ErrTransient))

	report, err := service.Run(ctx)
	require.NoError(t, err)
	require.Empty(t, report.Ordered)
	require.Equal(t, []sjrako.Date{day}, report.Failed)
}
