package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"sjrako-backend/lib/scrapers/sjrako"
	"sjrako-backend/lib/textutil"

	"go.opentelemetry.io/otel/codes"
)

// Credit returns the account's remaining credit in Kč.
func (c *Client) Credit(ctx context.Context) (float64, error) {
	credit, _, err := c.readCredit(ctx)
	return credit, err
}

// CreditConsumption returns the credit spent in the current month.
func (c *Client) CreditConsumption(ctx context.Context) (float64, error) {
	_, consumption, err := c.readCredit(ctx)
	return consumption, err
}

// CreditStatus returns a one-line summary of the account's credit, in
// the portal's own wording.
func (c *Client) CreditStatus(ctx context.Context) (string, error) {
	credit, consumption, err := c.readCredit(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Zůstatek kreditu na účtu: %s Kč | Aktuální měsíční spotřeba kreditu: %s Kč",
		formatPrice(credit), formatPrice(consumption),
	), nil
}

func (c *Client) readCredit(ctx context.Context) (credit, consumption float64, err error) {
	ctx, span := tracer.Start(ctx, "readCredit")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to read credit")
		}
	}()

	if c.session == nil {
		return 0, 0, sjrako.ErrAuthenticationRequired
	}

	// the credit box reflects order changes only after a reload
	if err := c.driver.Refresh(ctx); err != nil {
		return 0, 0, err
	}

	box, err := c.driver.Find("#kreditInclude")
	if err != nil {
		return 0, 0, classifyPageError(err)
	}
	items, err := box.FindAll(".topMenuItem")
	if err != nil {
		return 0, 0, classifyPageError(err)
	}
	if len(items) < 2 {
		return 0, 0, fmt.Errorf(
			"%w: the credit box has %d entries, expected credit and consumption",
			sjrako.ErrUnexpectedPage, len(items),
		)
	}

	credit, err = textutil.ParsePrice(items[0].Text())
	if err != nil {
		return 0, 0, fmt.Errorf("%w: unreadable credit %q", sjrako.ErrUnexpectedPage, items[0].Text())
	}
	consumption, err = textutil.ParsePrice(items[1].Text())
	if err != nil {
		return 0, 0, fmt.Errorf("%w: unreadable consumption %q", sjrako.ErrUnexpectedPage, items[1].Text())
	}
	return credit, consumption, nil
}

func formatPrice(price float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(price, 'f', -1, 64), ".", ",")
}
