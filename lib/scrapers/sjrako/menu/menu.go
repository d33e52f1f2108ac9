// Package menu fetches, parses and caches the canteen's lunch menus,
// both from the public listing and through a logged-in session.
package menu

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"sjrako-backend/lib/pagedriver"
	"sjrako-backend/lib/scrapers/sjrako"
	"sjrako-backend/lib/scrapers/sjrako/core"
	"sjrako-backend/lib/telemetry"
	"sjrako-backend/lib/textutil"
	"sjrako-backend/lib/timezone"

	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("scrapers/sjrako/menu")

// Repository caches lunch menus fetched through one client. The public
// listing is refetched at most once per calendar day; menus fetched
// through a logged-in session stay cached until Invalidate replaces
// them. Reads may run concurrently, fetches are serialized.
type Repository struct {
	client *core.Client

	mu               sync.RWMutex
	listing          map[sjrako.Date]sjrako.LunchMenu
	listingFetchedOn sjrako.Date
	userMenus        map[sjrako.Date]sjrako.LunchMenu
}

func NewRepository(client *core.Client) *Repository {
	return &Repository{
		client:    client,
		listing:   map[sjrako.Date]sjrako.LunchMenu{},
		userMenus: map[sjrako.Date]sjrako.LunchMenu{},
	}
}

// GetLunchMenus returns every published lunch menu, sorted by date.
// Menus already fetched through the logged-in session take precedence
// over their public counterparts since they carry the order state.
func (r *Repository) GetLunchMenus(ctx context.Context) ([]sjrako.LunchMenu, error) {
	today := sjrako.Today()

	r.mu.RLock()
	if r.listingFetchedOn == today {
		menus := r.mergedListingLocked()
		r.mu.RUnlock()
		return menus, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listingFetchedOn != today {
		if err := r.fetchListingLocked(ctx); err != nil {
			return nil, err
		}
		r.listingFetchedOn = today
	}
	return r.mergedListingLocked(), nil
}

// GetLunchMenu returns the menu for one date. The second return value
// is false when the portal has no menu published for that date; that
// is not an error.
func (r *Repository) GetLunchMenu(ctx context.Context, date sjrako.Date) (sjrako.LunchMenu, bool, error) {
	r.mu.RLock()
	menu, found := r.userMenus[date]
	r.mu.RUnlock()
	if found {
		return menu, true, nil
	}

	if r.client.LoggedIn() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if menu, found := r.userMenus[date]; found {
			return menu, true, nil
		}
		return r.fetchUserMenuLocked(ctx, date)
	}

	menus, err := r.GetLunchMenus(ctx)
	if err != nil {
		return sjrako.LunchMenu{}, false, err
	}
	for _, menu := range menus {
		if menu.Date == date {
			return menu, true, nil
		}
	}
	return sjrako.LunchMenu{}, false, nil
}

// GetAllLunchMenusBetween fetches the menus of every date in the
// inclusive range through the logged-in session, skipping dates with
// no published menu. The bounds may come in either order.
func (r *Repository) GetAllLunchMenusBetween(ctx context.Context, from, to sjrako.Date) ([]sjrako.LunchMenu, error) {
	if !r.client.LoggedIn() {
		return nil, sjrako.ErrAuthenticationRequired
	}
	if from.After(to) {
		from, to = to, from
	}

	var menus []sjrako.LunchMenu
	for date := from; !date.After(to); date = date.AddDays(1) {
		menu, found, err := r.GetLunchMenu(ctx, date)
		if err != nil {
			return nil, err
		}
		if found {
			menus = append(menus, menu)
		}
	}
	return menus, nil
}

// ChangeableDates returns the published dates whose orders can still
// be changed right now, sorted ascending.
func (r *Repository) ChangeableDates(ctx context.Context) ([]sjrako.Date, error) {
	menus, err := r.GetLunchMenus(ctx)
	if err != nil {
		return nil, err
	}
	now := timezone.Now()
	var dates []sjrako.Date
	for _, menu := range menus {
		if menu.Date.IsChangeable(now) {
			dates = append(dates, menu.Date)
		}
	}
	return dates, nil
}

// LastChangeableDate returns the furthest date an order can still be
// placed for, or false when there is none.
func (r *Repository) LastChangeableDate(ctx context.Context) (sjrako.Date, bool, error) {
	dates, err := r.ChangeableDates(ctx)
	if err != nil {
		return sjrako.Date{}, false, err
	}
	if len(dates) == 0 {
		return sjrako.Date{}, false, nil
	}
	return dates[len(dates)-1], true, nil
}

// Invalidate drops the session-fetched menu for a date, forcing the
// next read to hit the portal. Order mutations call this after
// changing remote state.
func (r *Repository) Invalidate(date sjrako.Date) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.userMenus, date)
}

func (r *Repository) mergedListingLocked() []sjrako.LunchMenu {
	menus := make([]sjrako.LunchMenu, 0, len(r.listing))
	for date, menu := range r.listing {
		if userMenu, found := r.userMenus[date]; found {
			menu = userMenu
		}
		menus = append(menus, menu)
	}
	slices.SortFunc(menus, func(a, b sjrako.LunchMenu) int {
		return a.Date.Compare(b.Date)
	})
	return menus
}

// fetchListingLocked scrapes the public menu listing on the login
// page, which needs no session.
func (r *Repository) fetchListingLocked(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "fetchListing")
	defer span.End()

	driver := r.client.Driver()
	if err := driver.Navigate(ctx, r.client.BaseUrl()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load the public listing")
		return err
	}

	days, err := driver.FindAll(".jidelnicekDen")
	if err != nil {
		return err
	}

	listing := map[sjrako.Date]sjrako.LunchMenu{}
	for _, day := range days {
		menu, found, err := parseListingDay(day)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse the public listing")
			return err
		}
		if found {
			listing[menu.Date] = menu
		}
	}
	r.listing = listing
	return nil
}

func parseListingDay(day pagedriver.Element) (sjrako.LunchMenu, bool, error) {
	header, err := day.Find(".jidelnicekTop")
	if err != nil {
		return sjrako.LunchMenu{}, false, fmt.Errorf("%w: a listing day has no header", sjrako.ErrUnexpectedPage)
	}
	id, _ := header.Attr("id")
	date, err := parseDayId(id)
	if err != nil {
		return sjrako.LunchMenu{}, false, err
	}

	containers, err := day.FindAll(".container")
	if err != nil {
		return sjrako.LunchMenu{}, false, err
	}

	var lunches []sjrako.Lunch
	number := 1
	for _, container := range containers {
		items, err := container.FindAll(".jidelnicekItem")
		if err != nil {
			return sjrako.LunchMenu{}, false, err
		}
		if len(items) < 2 {
			return sjrako.LunchMenu{}, false, fmt.Errorf(
				"%w: a listing entry for %s has %d cells, expected a label and a dish",
				sjrako.ErrUnexpectedPage, date, len(items),
			)
		}
		label, text := items[0].Text(), items[1].Text()

		if err := verifyLunchNumber(label, number); err != nil {
			return sjrako.LunchMenu{}, false, err
		}

		// dish cells use ";" between soup and main dish, older ones ","
		sep := ";"
		if !strings.Contains(text, ";") {
			sep = ","
		}
		if soup, mainDish, ok := textutil.SplitSoupMainDish(text, sep); ok {
			lunches = append(lunches, sjrako.NewLunch(date, number, soup, mainDish))
		}
		number++
	}

	if len(lunches) == 0 {
		return sjrako.LunchMenu{}, false, nil
	}
	menu, err := sjrako.NewLunchMenu(lunches)
	if err != nil {
		return sjrako.LunchMenu{}, false, err
	}
	return menu, true, nil
}

// parseDayId reads a date from a listing header id like "day-2024-11-25".
func parseDayId(id string) (sjrako.Date, error) {
	parts := strings.Split(id, "-")
	if len(parts) != 4 {
		return sjrako.Date{}, fmt.Errorf("%w: malformed day header id %q", sjrako.ErrUnexpectedPage, id)
	}
	numbers := make([]int, 3)
	for i, part := range parts[1:] {
		n, err := strconv.Atoi(part)
		if err != nil {
			return sjrako.Date{}, fmt.Errorf("%w: malformed day header id %q", sjrako.ErrUnexpectedPage, id)
		}
		numbers[i] = n
	}
	date, err := sjrako.NewDate(numbers[0], time.Month(numbers[1]), numbers[2])
	if err != nil {
		return sjrako.Date{}, fmt.Errorf("%w: day header id %q: %v", sjrako.ErrUnexpectedPage, id, err)
	}
	return date, nil
}

func verifyLunchNumber(label string, number int) error {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty lunch label", sjrako.ErrUnexpectedPage)
	}
	parsed, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || parsed != number {
		return fmt.Errorf("%w: lunch label %q does not match lunch number %d", sjrako.ErrUnexpectedPage, label, number)
	}
	return nil
}

// fetchUserMenuLocked loads one day's menu through the logged-in
// session, which carries per-lunch order state the public listing
// does not.
func (r *Repository) fetchUserMenuLocked(ctx context.Context, date sjrako.Date) (sjrako.LunchMenu, bool, error) {
	ctx, span := tracer.Start(ctx, "fetchUserMenu")
	defer span.End()

	driver := r.client.Driver()
	base := driver.CurrentURL()
	if base == "" {
		base = r.client.BaseUrl()
	}
	dayUrl, err := core.URLWithParam(base, "day", date.ISO())
	if err != nil {
		return sjrako.LunchMenu{}, false, err
	}
	if err := driver.Navigate(ctx, dayUrl); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load the day page")
		return sjrako.LunchMenu{}, false, err
	}

	items, err := driver.FindAll(".jidelnicekItem")
	if err != nil {
		return sjrako.LunchMenu{}, false, err
	}

	var lunches []sjrako.Lunch
	number := 1
	for _, item := range items {
		lunch, parsed, err := parseUserLunch(item, date, number)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse the day page")
			return sjrako.LunchMenu{}, false, err
		}
		if parsed {
			lunches = append(lunches, lunch)
		}
		number++
	}

	if len(lunches) == 0 {
		return sjrako.LunchMenu{}, false, nil
	}
	menu, err := sjrako.NewLunchMenu(lunches)
	if err != nil {
		return sjrako.LunchMenu{}, false, err
	}
	r.userMenus[date] = menu
	return menu, true, nil
}

func parseUserLunch(item pagedriver.Element, date sjrako.Date, number int) (sjrako.Lunch, bool, error) {
	info, err := item.Find("[id^='menu-']")
	if err != nil {
		return sjrako.Lunch{}, false, fmt.Errorf("%w: a day entry has no dish text", sjrako.ErrUnexpectedPage)
	}
	soup, mainDish, ok := textutil.SplitSoupMainDish(info.Text(), ";")
	if !ok {
		return sjrako.Lunch{}, false, nil
	}

	button, err := item.Find(".btn")
	if err != nil {
		return sjrako.Lunch{}, false, fmt.Errorf("%w: a day entry has no order button", sjrako.ErrUnexpectedPage)
	}
	if !strings.Contains(button.Text(), fmt.Sprintf("Oběd %d", number)) {
		return sjrako.Lunch{}, false, fmt.Errorf(
			"%w: order button %q does not match lunch number %d",
			sjrako.ErrUnexpectedPage, button.Text(), number,
		)
	}

	anchor, err := item.Find("a")
	if err != nil {
		return sjrako.Lunch{}, false, fmt.Errorf("%w: a day entry has no order control", sjrako.ErrUnexpectedPage)
	}
	state := anchorState(anchor)

	lunch := sjrako.NewLunch(date, number, soup, mainDish)
	lunch.CanBeChanged = state.ordered || state.enabled
	lunch.IsOrdered = state.ticked
	return lunch, true, nil
}

type orderAnchorState struct {
	ordered  bool
	enabled  bool
	disabled bool
	ticked   bool
}

func anchorState(anchor pagedriver.Element) orderAnchorState {
	var state orderAnchorState
	classes, _ := anchor.Attr("class")
	for _, class := range strings.Fields(classes) {
		switch class {
		case "ordered":
			state.ordered = true
		case "enabled":
			state.enabled = true
		case "disabled":
			state.disabled = true
		}
	}
	if _, err := anchor.Find(".button-link-tick"); err == nil {
		state.ticked = true
	}
	return state
}
