// Package core implements login, logout and account queries for the
// sjrako canteen portal. The other sjrako packages build on the session
// this package owns.
package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"sjrako-backend/lib/pagedriver"
	"sjrako-backend/lib/scrapers/sjrako"
	"sjrako-backend/lib/telemetry"

	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("scrapers/sjrako/core")

// BaseUrl is the portal's entry point. It serves the public menu
// listing and the login form on the same page.
const BaseUrl = "https://jidelna.sjrako.cz/login"

// Session describes a logged-in portal account.
type Session struct {
	Username  string
	FirstName string
	LastName  string
}

func (s Session) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

type ClientOptions struct {
	Driver pagedriver.Driver
	// defaults to BaseUrl
	BaseUrl string
}

// Client owns a page driver and at most one portal session on it. It
// performs one page operation at a time and is not safe for concurrent
// use; run one Client per account.
type Client struct {
	driver  pagedriver.Driver
	baseUrl string
	session *Session
}

func NewClient(opts ClientOptions) *Client {
	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = BaseUrl
	}
	return &Client{
		driver:  opts.Driver,
		baseUrl: baseUrl,
	}
}

func (c *Client) Driver() pagedriver.Driver {
	return c.driver
}

func (c *Client) BaseUrl() string {
	return c.baseUrl
}

// Session returns the active session, if any.
func (c *Client) Session() (Session, bool) {
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

func (c *Client) LoggedIn() bool {
	return c.session != nil
}

// Login authenticates against the portal. Transient network failures
// wrap pagedriver.ErrTransient and leave the client logged out, so the
// caller may retry.
func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	if c.session != nil {
		return sjrako.ErrAlreadyAuthenticated
	}

	err := c.login(ctx, username, password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return err
	}
	return nil
}

func (c *Client) login(ctx context.Context, username, password string) error {
	err := c.driver.Navigate(ctx, c.baseUrl)
	if err != nil {
		return err
	}
	if err := c.driver.FillField("#j_username", username); err != nil {
		return classifyPageError(err)
	}
	if err := c.driver.FillField("#j_password", password); err != nil {
		return classifyPageError(err)
	}
	if err := c.driver.Click(ctx, "#login_menu input[type=submit]"); err != nil {
		return classifyPageError(err)
	}

	title := strings.ToLower(c.driver.Title())
	switch {
	case strings.Contains(title, "objednání"):
		// landed on the ordering page
	case strings.Contains(title, "přihlášení"):
		return fmt.Errorf("%w: user %s", sjrako.ErrAuthenticationFailed, username)
	default:
		return fmt.Errorf("%w: landed on %q after login", sjrako.ErrUnexpectedPage, c.driver.Title())
	}

	firstName, err := c.driver.ReadText("[id*=firstName]")
	if err != nil {
		return classifyPageError(err)
	}
	lastName, err := c.driver.ReadText("[id*=lastName]")
	if err != nil {
		return classifyPageError(err)
	}

	c.session = &Session{
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
	}
	return nil
}

// Logout ends the portal session and reports whether the portal
// confirmed it. The local session is cleared either way.
func (c *Client) Logout(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "Logout")
	defer span.End()

	if c.session == nil {
		return true
	}
	c.session = nil

	if err := c.driver.Click(ctx, "#logout"); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "logout click failed")
		return false
	}
	return strings.Contains(strings.ToLower(c.driver.Title()), "přihlášení")
}

// Close logs out when a session is still active and releases the
// driver. Safe to defer right after NewClient.
func (c *Client) Close(ctx context.Context) error {
	if c.session != nil {
		c.Logout(ctx)
	}
	return c.driver.Close()
}

// classifyPageError turns a missing element into ErrUnexpectedPage:
// the portal served a page we don't understand. Transient network
// failures keep their own sentinel so callers can retry them.
func classifyPageError(err error) error {
	if errors.Is(err, pagedriver.ErrElementNotFound) {
		return fmt.Errorf("%w: %v", sjrako.ErrUnexpectedPage, err)
	}
	return err
}

// URLWithParam returns rawUrl with the query parameter set, replacing
// any previous value.
func URLWithParam(rawUrl, param, value string) (string, error) {
	u, err := url.Parse(rawUrl)
	if err != nil {
		return "", err
	}
	query := u.Query()
	query.Set(param, value)
	u.RawQuery = query.Encode()
	return u.String(), nil
}
