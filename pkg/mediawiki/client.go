// Package mediawiki is the HTTP transport collaborator for the link graph.
//
// It knows two endpoints of a MediaWiki installation: the human-facing
// article URLs (for rendered pages, which is where outbound links are read
// from) and api.php (for backlink and redirect listings). It deliberately
// knows nothing about caching, budgets, or search; that all lives in
// pkg/graph.
//
// The client cooperates with the server's load-shedding: every API request
// carries a maxlag parameter, and a lagged or rate-limited response is
// retried after the server-suggested wait, up to MaxRetries attempts.
package mediawiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/orneryd/wikiladder/pkg/logging"
	"github.com/orneryd/wikiladder/pkg/title"
)

const (
	// DefaultDomain is the wiki served when Options.Domain is empty.
	DefaultDomain = "en.wikipedia.org"

	defaultUserAgent  = "wikiladder/1.0 (https://github.com/orneryd/wikiladder)"
	defaultTimeout    = 30 * time.Second
	defaultMaxLag     = 5
	defaultMaxRetries = 2
	defaultRetryWait  = 10 * time.Second
)

// ErrAPI wraps errors reported by the MediaWiki API itself (as opposed to
// transport failures).
var ErrAPI = errors.New("mediawiki api error")

// Options configures a Client. The zero value targets English Wikipedia.
type Options struct {
	// Domain is the wiki's domain name, e.g. "en.wikipedia.org".
	Domain string

	// UserAgent identifies this client to the server. Wikipedia policy
	// requires a descriptive one.
	UserAgent string

	// Timeout bounds each individual HTTP request.
	Timeout time.Duration

	// MaxLag is the database-lag threshold sent with every API call; the
	// server rejects requests while replication lag exceeds it.
	MaxLag int

	// MaxRetries is the number of attempts per request before giving up.
	MaxRetries int

	// HTTPClient overrides the underlying client. Nil builds one from
	// Timeout.
	HTTPClient *http.Client

	// Logger for retry diagnostics. Nil discards.
	Logger *slog.Logger
}

// Client fetches rendered pages and link listings from one wiki. Safe for
// concurrent use.
type Client struct {
	httpc      *http.Client
	apiURL     string
	articleURL string
	userAgent  string
	maxLag     int
	maxRetries int
	log        *slog.Logger
}

// NewClient constructs a Client for the given wiki.
func NewClient(opts Options) *Client {
	if opts.Domain == "" {
		opts.Domain = DefaultDomain
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxLag <= 0 {
		opts.MaxLag = defaultMaxLag
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		httpc:      httpc,
		apiURL:     "https://" + opts.Domain + "/w/api.php",
		articleURL: "https://" + opts.Domain + "/wiki/",
		userAgent:  opts.UserAgent,
		maxLag:     opts.MaxLag,
		maxRetries: opts.MaxRetries,
		log:        log,
	}
}

// RenderedPage fetches the rendered HTML of an article. The title is
// percent-encoded into the article URL; a redirect page renders as its
// target, which is exactly what outbound link extraction wants.
func (c *Client) RenderedPage(ctx context.Context, pageTitle string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.articleURL+title.Encode(pageTitle), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page %q: %w", pageTitle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching page %q: unexpected status %s", pageTitle, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading page %q: %w", pageTitle, err)
	}
	return string(body), nil
}

// linksHereResponse is the subset of the action=query&prop=linkshere reply
// the client cares about.
type linksHereResponse struct {
	Continue struct {
		LhContinue string `json:"lhcontinue"`
	} `json:"continue"`
	Query struct {
		Pages map[string]struct {
			LinksHere []struct {
				Title string `json:"title"`
			} `json:"linkshere"`
		} `json:"pages"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Info)
}

// InboundPage returns one page of titles linking to pageTitle, excluding
// redirects, plus the continuation cursor for the next page ("" when the
// listing is exhausted).
func (c *Client) InboundPage(ctx context.Context, pageTitle, cursor string, limit int) ([]string, string, error) {
	return c.linksHere(ctx, pageTitle, cursor, limit, false)
}

// RedirectsTo returns every title redirecting to pageTitle. Redirect
// listings are short, so this paginates to exhaustion.
func (c *Client) RedirectsTo(ctx context.Context, pageTitle string) ([]string, error) {
	var all []string
	cursor := ""
	for {
		titles, next, err := c.linksHere(ctx, pageTitle, cursor, 0, true)
		if err != nil {
			return nil, err
		}
		all = append(all, titles...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

func (c *Client) linksHere(ctx context.Context, pageTitle, cursor string, limit int, redirects bool) ([]string, string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "linkshere")
	params.Set("titles", pageTitle)
	params.Set("lhnamespace", "0")
	params.Set("lhprop", "title")
	if redirects {
		params.Set("lhshow", "redirect")
		params.Set("lhlimit", "max")
	} else {
		params.Set("lhshow", "!redirect")
		params.Set("lhlimit", strconv.Itoa(limit))
	}
	if cursor != "" {
		params.Set("lhcontinue", cursor)
	}

	body, err := c.callAPI(ctx, params)
	if err != nil {
		return nil, "", err
	}

	var parsed linksHereResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", fmt.Errorf("parsing linkshere response for %q: %w", pageTitle, err)
	}
	if parsed.Error != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrAPI, parsed.Error)
	}

	var titles []string
	for _, page := range parsed.Query.Pages {
		for _, lh := range page.LinksHere {
			titles = append(titles, lh.Title)
		}
	}
	return titles, parsed.Continue.LhContinue, nil
}

// callAPI issues one GET against api.php, retrying lagged or rate-limited
// responses up to maxRetries attempts.
func (c *Client) callAPI(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("maxlag", strconv.Itoa(c.maxLag))
	reqURL := c.apiURL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		body, wait, err := c.tryAPI(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if wait < 0 {
			// Not retryable.
			return nil, err
		}
		if attempt+1 >= c.maxRetries {
			break
		}
		c.log.Warn("api call will be retried", "error", err, "wait", wait, "attempt", attempt+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

// tryAPI performs one attempt. A negative wait means the error is not
// retryable.
func (c *Client) tryAPI(ctx context.Context, reqURL string) (body []byte, wait time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		// Transport errors are worth one more try.
		return nil, defaultRetryWait, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, defaultRetryWait, err
	}

	if resp.StatusCode == http.StatusOK {
		// The API reports lag and throttling inside a 200 body.
		var probe struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(body, &probe) == nil && probe.Error != nil {
			switch probe.Error.Code {
			case "maxlag":
				return nil, retryAfter(resp), fmt.Errorf("%w: %s", ErrAPI, probe.Error)
			case "ratelimited", "readonly":
				return nil, defaultRetryWait, fmt.Errorf("%w: %s", ErrAPI, probe.Error)
			}
		}
		return body, 0, nil
	}

	if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
		return nil, retryAfter(resp), fmt.Errorf("api returned status %s", resp.Status)
	}
	return nil, -1, fmt.Errorf("api returned status %s", resp.Status)
}

func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryWait
}
