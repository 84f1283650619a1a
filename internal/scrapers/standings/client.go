// Package standings fetches medal standings pages over HTTP. It knows nothing about the
// shape of the pages, it only returns their text.
package standings

import (
	"context"
	"fmt"
	"medaltable/internal/components/assert"
	"medaltable/internal/components/telemetry"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const report_client_fetch_page = "client.fetch-page"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

type Options struct {
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond limits how quickly pages are requested, bursts of the same size
	// are allowed.
	RequestsPerSecond float64
	// Dump, when set, receives the body of every page fetched successfully.
	Dump *PageDump
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 2
	}
	return o
}

// StatusError is returned when a page responds with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

type Client struct {
	http *resty.Client
	dump *PageDump
	tel  telemetry.API
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel)

	tel = telemetry.NewScopedAPI("standings_client", tel)
	opts = opts.withDefaults()

	httpClient := resty.New()
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", opts.UserAgent)
	httpClient.SetHeader("accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpClient.SetHeader("accept-language", "en-US,en;q=0.9")
	httpClient.SetHeader("cache-control", "no-cache")
	httpClient.SetTimeout(opts.Timeout)

	burst := int(opts.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	return &Client{
		http: httpClient,
		dump: opts.Dump,
		tel:  tel,
	}
}

// FetchPage returns the body of the page at pageUrl.
func (c *Client) FetchPage(ctx context.Context, pageUrl string) (string, error) {
	req := c.http.R().SetContext(ctx)

	parsed, err := url.Parse(pageUrl)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", pageUrl, err)
	}
	if parsed.Scheme != "" && parsed.Host != "" {
		req.SetHeader("referer", fmt.Sprintf("%s://%s/", parsed.Scheme, parsed.Host))
	}

	res, err := req.Get(pageUrl)
	if err != nil {
		// resty already names the method and url
		return "", err
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		err := &StatusError{URL: pageUrl, StatusCode: res.StatusCode()}
		c.tel.ReportWarning(report_client_fetch_page, err)
		return "", err
	}

	body := res.String()
	if c.dump != nil {
		path, err := c.dump.Write(pageUrl, body)
		if err != nil {
			c.tel.ReportWarning(report_dump_write, err)
		} else {
			c.tel.ReportDebug(report_dump_write, pageUrl, path)
		}
	}
	return body, nil
}
