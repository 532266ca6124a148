// Package geocode resolves free-text places through a Nominatim-compatible API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

// MinQueryLength is the shortest query worth sending upstream.
const MinQueryLength = 3

// Place is one ranked result.
type Place struct {
	DisplayName string
	Lat         float64
	Lon         float64
}

// Client searches places, debouncing per caller key.
type Client struct {
	baseURL   string
	userAgent string
	limit     int
	http      *http.Client
	debouncer *Debouncer
}

// Option customizes a Client.
type Option func(*Client)

// WithTransport replaces the transport of the underlying HTTP client.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

// NewClient builds a Client. A zero debounce disables debouncing.
func NewClient(baseURL, userAgent string, limit int, timeout, debounce time.Duration, opts ...Option) *Client {
	if limit <= 0 {
		limit = 5
	}
	c := &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		limit:     limit,
		http:      &http.Client{Timeout: timeout},
	}
	if debounce > 0 {
		c.debouncer = NewDebouncer(debounce)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search waits out the debounce window for key, then queries the API.
// Short queries return no results without a request.
func (c *Client) Search(ctx context.Context, key, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []Place{}, nil
	}

	if c.debouncer != nil {
		if err := c.debouncer.Wait(ctx, key); err != nil {
			return nil, err
		}
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(c.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperrors.ErrGeocodeUpstream.Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.ErrGeocodeUpstream.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ErrGeocodeUpstream.Wrap(fmt.Errorf("status %d", resp.StatusCode))
	}

	var raw []struct {
		DisplayName string `json:"display_name"`
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperrors.ErrGeocodeUpstream.Wrap(err)
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		lat, errLat := strconv.ParseFloat(r.Lat, 64)
		lon, errLon := strconv.ParseFloat(r.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		places = append(places, Place{DisplayName: r.DisplayName, Lat: lat, Lon: lon})
	}
	return places, nil
}
