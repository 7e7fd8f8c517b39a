package wikibase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://www.wikidata.org/w/api.php"
	DefaultLanguage = "en"
)

var (
	// PropsFull requests everything needed for a detail view.
	PropsFull = []string{"labels", "descriptions", "claims"}
	// PropsLabels requests labels only.
	PropsLabels = []string{"labels"}
)

var errNoIDs = errors.New("wikibase: no entity ids requested")

// StatusError reports a non-success HTTP status from the entity API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("entity api returned status %d", e.StatusCode)
}

type Client struct {
	endpoint  string
	language  string
	userAgent string
	http      *http.Client
}

type Options struct {
	Endpoint   string
	Language   string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func NewClient(opts Options) *Client {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	lang := strings.TrimSpace(opts.Language)
	if lang == "" {
		lang = DefaultLanguage
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{endpoint: endpoint, language: lang, userAgent: strings.TrimSpace(opts.UserAgent), http: hc}
}

// Language is the single language labels and descriptions are requested in.
func (c *Client) Language() string {
	return c.language
}

// GetEntities calls wbgetentities for ids, requesting props in the client language.
func (c *Client) GetEntities(ctx context.Context, ids []string, props []string) (map[string]Entity, error) {
	if len(ids) == 0 {
		return nil, errNoIDs
	}

	q := url.Values{}
	q.Set("action", "wbgetentities")
	q.Set("ids", strings.Join(ids, "|"))
	q.Set("props", strings.Join(props, "|"))
	q.Set("languages", c.language)
	q.Set("format", "json")
	q.Set("origin", "*")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode wbgetentities response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Entities, nil
}
