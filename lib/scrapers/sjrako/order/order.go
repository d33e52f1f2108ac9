// Package order mutates lunch orders through a logged-in session and
// verifies every change against a fresh menu fetch.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sjrako-backend/lib/pagedriver"
	"sjrako-backend/lib/scrapers/sjrako"
	"sjrako-backend/lib/scrapers/sjrako/core"
	"sjrako-backend/lib/scrapers/sjrako/menu"
	"sjrako-backend/lib/telemetry"
	"sjrako-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("scrapers/sjrako/order")

// cancelNumber orders "no lunch" for the day.
const cancelNumber = 0

// the portal occasionally drops an order click, every change is
// re-read and retried this many times before giving up
const maxAttempts = 3

type Controller struct {
	client *core.Client
	menus  *menu.Repository
}

func NewController(client *core.Client, menus *menu.Repository) *Controller {
	return &Controller{client: client, menus: menus}
}

// SetLunch orders the lunch with the given number on the date. It
// returns true once a fresh menu fetch confirms the order, false when
// the portal kept refusing the change. Dates whose orders can no
// longer be changed fail with ErrNotChangeable before any portal
// contact.
func (c *Controller) SetLunch(ctx context.Context, date sjrako.Date, number int) (bool, error) {
	if number < 1 || number > 3 {
		return false, fmt.Errorf("%w: number %d is out of range", sjrako.ErrLunchNotFound, number)
	}
	return c.setLunch(ctx, date, number)
}

// CancelLunch removes the order on the date. Nothing being ordered is
// a success, confirmed without contacting the portal when a cached
// menu already shows it.
func (c *Controller) CancelLunch(ctx context.Context, date sjrako.Date) (bool, error) {
	return c.setLunch(ctx, date, cancelNumber)
}

// CancelAllLunches cancels the order on every date that can still be
// changed. One date failing does not stop the rest; the returned dates
// are the ones whose cancellation was confirmed, and the bool is true
// only when that is all of them.
func (c *Controller) CancelAllLunches(ctx context.Context) (bool, []sjrako.Date, error) {
	ctx, span := tracer.Start(ctx, "CancelAllLunches")
	defer span.End()

	if !c.client.LoggedIn() {
		return false, nil, sjrako.ErrAuthenticationRequired
	}

	dates, err := c.menus.ChangeableDates(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list changeable dates")
		return false, nil, err
	}

	all := true
	var cancelled []sjrako.Date
	var failures []error
	for _, date := range dates {
		success, err := c.CancelLunch(ctx, date)
		if err != nil {
			all = false
			failures = append(failures, fmt.Errorf("%s: %w", date, err))
			continue
		}
		if !success {
			all = false
			continue
		}
		cancelled = append(cancelled, date)
	}

	err = errors.Join(failures...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "some cancellations failed")
	}
	return all, cancelled, err
}

func (c *Controller) setLunch(ctx context.Context, date sjrako.Date, number int) (bool, error) {
	ctx, span := tracer.Start(ctx, "setLunch")
	span.SetAttributes(
		attribute.String("date", date.ISO()),
		attribute.Int("lunch_number", number),
	)
	defer span.End()

	if !c.client.LoggedIn() {
		return false, sjrako.ErrAuthenticationRequired
	}
	if !date.IsChangeable(timezone.Now()) {
		return false, fmt.Errorf("%w: %s", sjrako.ErrNotChangeable, date)
	}

	dayMenu, found, err := c.menus.GetLunchMenu(ctx, date)
	if err != nil {
		return false, err
	}
	if !found {
		if number == cancelNumber {
			return true, nil
		}
		return false, fmt.Errorf("%w: no menu is published for %s", sjrako.ErrNotChangeable, date)
	}
	if number == cancelNumber {
		if dayMenu.OrderedLunch == nil {
			return true, nil
		}
	} else if _, found := dayMenu.Lunch(number); !found {
		return false, fmt.Errorf("%w: number %d on %s", sjrako.ErrLunchNotFound, number, date)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		interacted, probablySucceeded, err := c.clickLunch(ctx, date, number)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "order click failed")
			return false, err
		}
		if interacted {
			c.menus.Invalidate(date)
		} else if probablySucceeded {
			return true, nil
		}

		confirmed, err := c.verify(ctx, date, number)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "order verification failed")
			return false, err
		}
		if confirmed {
			return true, nil
		}
	}
	return false, nil
}

// clickLunch walks the day page and clicks the order control that
// moves the state towards the wanted number. A cancel keeps walking
// past orderable lunches until it finds the ordered one.
func (c *Controller) clickLunch(ctx context.Context, date sjrako.Date, number int) (interacted, probablySucceeded bool, err error) {
	driver := c.client.Driver()
	base := driver.CurrentURL()
	if base == "" {
		base = c.client.BaseUrl()
	}
	dayUrl, err := core.URLWithParam(base, "day", date.ISO())
	if err != nil {
		return false, false, err
	}
	if err := driver.Navigate(ctx, dayUrl); err != nil {
		return false, false, err
	}

	items, err := driver.FindAll(".jidelnicekItem")
	if err != nil {
		return false, false, classifyPageError(err)
	}

	decided := false
	current := 1
	for _, item := range items {
		button, err := item.Find(".btn")
		if err != nil {
			return false, false, classifyPageError(err)
		}
		if !strings.Contains(button.Text(), fmt.Sprintf("Oběd %d", current)) {
			return false, false, fmt.Errorf(
				"%w: order button %q does not match lunch number %d",
				sjrako.ErrUnexpectedPage, button.Text(), current,
			)
		}

		if number == current || number == cancelNumber {
			anchor, err := item.Find("a")
			if err != nil {
				return false, false, classifyPageError(err)
			}
			classes, _ := anchor.Attr("class")
			switch {
			case hasClass(classes, "ordered"):
				if number == cancelNumber {
					if err := anchor.Click(ctx); err != nil {
						return false, false, err
					}
					interacted = true
				}
				return interacted, true, nil
			case hasClass(classes, "enabled"):
				if number != cancelNumber {
					if err := anchor.Click(ctx); err != nil {
						return false, false, err
					}
					return true, true, nil
				}
			case hasClass(classes, "disabled"):
				decided = true
				probablySucceeded = false
			}
			if decided {
				break
			}
		}
		current++
	}

	if !decided {
		// nothing to click: a cancel with no order is already done
		probablySucceeded = number == cancelNumber
	}
	return interacted, probablySucceeded, nil
}

// verify re-reads the menu and checks the order state matches what was
// requested.
func (c *Controller) verify(ctx context.Context, date sjrako.Date, number int) (bool, error) {
	c.menus.Invalidate(date)
	fresh, found, err := c.menus.GetLunchMenu(ctx, date)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	if fresh.OrderedLunch == nil {
		return number == cancelNumber, nil
	}
	return fresh.OrderedLunch.Number == number, nil
}

func hasClass(classes, class string) bool {
	for _, c := range strings.Fields(classes) {
		if c == class {
			return true
		}
	}
	return false
}

func classifyPageError(err error) error {
	if errors.Is(err, pagedriver.ErrElementNotFound) {
		return fmt.Errorf("%w: %v", sjrako.ErrUnexpectedPage, err)
	}
	return err
}
