// Package drivertest provides a scripted in-memory pagedriver.Driver so
// scraping logic can be exercised against canned portal pages without a
// network or a real browser.
package drivertest

import (
	"bytes"
	"context"
	"fmt"

	"sjrako-backend/lib/htmlutil"
	"sjrako-backend/lib/pagedriver"

	"github.com/PuerkitoBio/goquery"
)

// ClickFunc reacts to a click on an element of the current page. It
// typically mutates the scripted pages with SetPage and re-navigates.
type ClickFunc func(d *Driver, sel *goquery.Selection) error

type Driver struct {
	// ClickHandler receives every click; a nil handler makes clicks no-ops.
	ClickHandler ClickFunc

	pages       map[string]string
	failures    map[string]error
	current     string
	doc         *goquery.Document
	navigations int
	clicks      int
	closed      bool
}

func New() *Driver {
	return &Driver{
		pages:    map[string]string{},
		failures: map[string]error{},
	}
}

// SetPage registers (or replaces) the html served for a url. If the
// driver currently sits on that url the change becomes visible on the
// next Navigate/Refresh, like a real page would.
func (d *Driver) SetPage(url, html string) {
	d.pages[url] = html
	delete(d.failures, url)
}

// FailNavigate makes navigation to a url fail with the given error.
func (d *Driver) FailNavigate(url string, err error) {
	d.failures[url] = err
}

// NavigationCount reports how many page loads the driver served,
// refreshes included.
func (d *Driver) NavigationCount() int {
	return d.navigations
}

func (d *Driver) ClickCount() int {
	return d.clicks
}

func (d *Driver) Closed() bool {
	return d.closed
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, failed := d.failures[url]; failed {
		return err
	}
	html, found := d.pages[url]
	if !found {
		return fmt.Errorf("%w: no scripted page for %s", pagedriver.ErrTransient, url)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(html))
	if err != nil {
		return err
	}
	d.doc = doc
	d.current = url
	d.navigations++
	return nil
}

func (d *Driver) Refresh(ctx context.Context) error {
	if d.current == "" {
		return fmt.Errorf("cannot refresh: no page loaded")
	}
	return d.Navigate(ctx, d.current)
}

func (d *Driver) CurrentURL() string {
	return d.current
}

func (d *Driver) Title() string {
	if d.doc == nil {
		return ""
	}
	return htmlutil.CleanText(d.doc.Find("title").Text())
}

func (d *Driver) Find(selector string) (pagedriver.Element, error) {
	if d.doc == nil {
		return nil, fmt.Errorf("%w: no page loaded", pagedriver.ErrElementNotFound)
	}
	sel := d.doc.Find(selector)
	if len(sel.Nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", pagedriver.ErrElementNotFound, selector)
	}
	return element{d: d, sel: sel.First()}, nil
}

func (d *Driver) FindAll(selector string) ([]pagedriver.Element, error) {
	if d.doc == nil {
		return nil, fmt.Errorf("%w: no page loaded", pagedriver.ErrElementNotFound)
	}
	sel := d.doc.Find(selector)
	elements := make([]pagedriver.Element, len(sel.Nodes))
	for i := range sel.Nodes {
		elements[i] = element{d: d, sel: sel.Eq(i)}
	}
	return elements, nil
}

func (d *Driver) ReadText(selector string) (string, error) {
	el, err := d.Find(selector)
	if err != nil {
		return "", err
	}
	return el.Text(), nil
}

func (d *Driver) ReadAttribute(selector, name string) (string, error) {
	el, err := d.Find(selector)
	if err != nil {
		return "", err
	}
	value, found := el.Attr(name)
	if !found {
		return "", fmt.Errorf("%w: %s has no attribute %q", pagedriver.ErrElementNotFound, selector, name)
	}
	return value, nil
}

func (d *Driver) FillField(selector, value string) error {
	if d.doc == nil {
		return fmt.Errorf("%w: no page loaded", pagedriver.ErrElementNotFound)
	}
	sel := d.doc.Find(selector)
	if len(sel.Nodes) == 0 {
		return fmt.Errorf("%w: %s", pagedriver.ErrElementNotFound, selector)
	}
	sel.First().SetAttr("value", value)
	return nil
}

func (d *Driver) Click(ctx context.Context, selector string) error {
	el, err := d.Find(selector)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func (d *Driver) Close() error {
	d.closed = true
	d.doc = nil
	d.current = ""
	return nil
}

type element struct {
	d   *Driver
	sel *goquery.Selection
}

func (e element) Text() string {
	return htmlutil.CleanText(e.sel.Text())
}

func (e element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e element) Find(selector string) (pagedriver.Element, error) {
	sub := e.sel.Find(selector)
	if len(sub.Nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", pagedriver.ErrElementNotFound, selector)
	}
	return element{d: e.d, sel: sub.First()}, nil
}

func (e element) FindAll(selector string) ([]pagedriver.Element, error) {
	sub := e.sel.Find(selector)
	elements := make([]pagedriver.Element, len(sub.Nodes))
	for i := range sub.Nodes {
		elements[i] = element{d: e.d, sel: sub.Eq(i)}
	}
	return elements, nil
}

func (e element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.d.clicks++
	if e.d.ClickHandler == nil {
		return nil
	}
	return e.d.ClickHandler(e.d, e.sel)
}
