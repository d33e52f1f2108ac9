package pagedriver

import (
	"context"
	"fmt"
)

// ErrElementNotFound is reported when a selector matches nothing on the
// current page.
var ErrElementNotFound = fmt.Errorf("element not found on the current page")

// ErrTransient wraps network-level failures (timeouts, unreachable
// portal). Callers may retry these; anything else is not retryable
// without a code change.
var ErrTransient = fmt.Errorf("transient network failure")

// Element is a handle to a single element on the driver's current page.
// Handles are invalidated by navigation.
type Element interface {
	// Text returns the rendered text of the element, whitespace collapsed.
	Text() string
	Attr(name string) (string, bool)
	Find(selector string) (Element, error)
	FindAll(selector string) ([]Element, error)
	// Click follows the element's anchor or submits its enclosing form,
	// which may navigate the driver to a new page.
	Click(ctx context.Context) error
}

// Driver is the browser-automation capability the scrapers are written
// against. Implementations are not safe for concurrent use; a session
// owns its driver and performs one operation at a time.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Refresh(ctx context.Context) error
	CurrentURL() string
	Title() string

	Find(selector string) (Element, error)
	FindAll(selector string) ([]Element, error)
	ReadText(selector string) (string, error)
	ReadAttribute(selector, name string) (string, error)
	// FillField stages a value into a form field on the current page.
	FillField(selector, value string) error
	Click(ctx context.Context, selector string) error

	Close() error
}
