package restydriver

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"sjrako-backend/lib/htmlutil"
	"sjrako-backend/lib/pagedriver"
	"sjrako-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("pagedriver/resty")

// Driver implements pagedriver.Driver over plain HTTP with resty and
// goquery. It does not execute scripts; clicking follows anchors and
// submits forms, which is all the canteen portal needs.
type Driver struct {
	http    *resty.Client
	base    *url.URL
	current *url.URL
	doc     *goquery.Document
}

type Options struct {
	BaseUrl string
	// defaults to 30s
	Timeout time.Duration
}

func New(opts Options) (*Driver, error) {
	base, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "pagedriver/resty/http")

	return &Driver{
		http: client,
		base: base,
	}, nil
}

func (d *Driver) resolve(link string) (*url.URL, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, err
	}
	if u.IsAbs() {
		return u, nil
	}
	if d.current != nil {
		return d.current.ResolveReference(u), nil
	}
	return d.base.ResolveReference(u), nil
}

func (d *Driver) load(res *resty.Response) error {
	if res.StatusCode() >= 500 {
		return fmt.Errorf("%w: portal returned status %d", pagedriver.ErrTransient, res.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return fmt.Errorf("failed to parse page html: %w", err)
	}
	d.doc = doc
	d.current = res.RawResponse.Request.URL
	return nil
}

func (d *Driver) Navigate(ctx context.Context, link string) error {
	ctx, span := tracer.Start(ctx, "Navigate")
	defer span.End()

	u, err := d.resolve(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve url")
		return err
	}
	res, err := d.http.R().
		SetContext(ctx).
		Get(u.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		return fmt.Errorf("%w: %v", pagedriver.ErrTransient, err)
	}
	return d.load(res)
}

func (d *Driver) Refresh(ctx context.Context) error {
	if d.current == nil {
		return fmt.Errorf("cannot refresh: no page loaded")
	}
	return d.Navigate(ctx, d.current.String())
}

func (d *Driver) CurrentURL() string {
	if d.current == nil {
		return ""
	}
	return d.current.String()
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
	d.doc = nil
	d.current = nil
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
	if href, found := e.sel.Attr("href"); found &&
		href != "" && href != "#" && !strings.HasPrefix(href, "javascript:") {
		return e.d.Navigate(ctx, href)
	}

	form := e.sel.Closest("form")
	if len(form.Nodes) > 0 {
		return e.d.submitForm(ctx, form, e.sel)
	}

	return fmt.Errorf("cannot click element: neither a link nor part of a form")
}

func (d *Driver) submitForm(ctx context.Context, form, clicked *goquery.Selection) error {
	ctx, span := tracer.Start(ctx, "submitForm")
	defer span.End()

	action, err := d.resolve(form.AttrOr("action", ""))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve form action")
		return err
	}

	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, input *goquery.Selection) {
		name, found := input.Attr("name")
		if !found || name == "" {
			return
		}
		inputType := strings.ToLower(input.AttrOr("type", ""))
		switch inputType {
		case "submit", "image", "button":
			// only the pressed submit contributes its value
			if len(clicked.Nodes) > 0 && input.Nodes[0] == clicked.Nodes[0] {
				values.Set(name, input.AttrOr("value", ""))
			}
			return
		case "checkbox", "radio":
			if _, checked := input.Attr("checked"); !checked {
				return
			}
		}
		values.Set(name, input.AttrOr("value", ""))
	})

	method := strings.ToUpper(form.AttrOr("method", "GET"))

	var res *resty.Response
	if method == "POST" {
		res, err = d.http.R().
			SetContext(ctx).
			SetFormDataFromValues(values).
			Post(action.String())
	} else {
		action.RawQuery = values.Encode()
		res, err = d.http.R().
			SetContext(ctx).
			Get(action.String())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit form")
		return fmt.Errorf("%w: %v", pagedriver.ErrTransient, err)
	}
	return d.load(res)
}
