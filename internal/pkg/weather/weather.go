// Package weather queries the Open-Meteo hourly forecast for a ride start.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

const (
	// DefaultBaseURL is the public Open-Meteo forecast endpoint.
	DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"
	// DefaultHorizonDays is how far ahead Open-Meteo publishes forecasts.
	DefaultHorizonDays = 16

	hourlyFields = "temperature_2m,precipitation_probability,weathercode,windspeed_10m"
	hourLayout   = "2006-01-02T15:04"
	dateLayout   = "2006-01-02"
	// RainyThreshold is the precipitation probability above which a ride is flagged.
	RainyThreshold = 50
)

// Forecast is the hour of the forecast that contains the ride start.
type Forecast struct {
	Hour                     string
	Timezone                 string
	TemperatureC             float64
	PrecipitationProbability int
	WeatherCode              int
	WindSpeedKmh             float64
}

// Rainy reports whether rain is more likely than not.
func (f *Forecast) Rainy() bool {
	return f.PrecipitationProbability > RainyThreshold
}

// Description maps the WMO weather code to a short label.
func (f *Forecast) Description() string {
	return Describe(f.WeatherCode)
}

// Describe maps a WMO weather interpretation code to a label.
func Describe(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code <= 3:
		return "Partly cloudy"
	case code <= 48:
		return "Fog"
	case code <= 67:
		return "Rain"
	case code <= 77:
		return "Snow"
	case code <= 82:
		return "Rain showers"
	case code <= 99:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}

// Client talks to Open-Meteo.
type Client struct {
	baseURL     string
	http        *http.Client
	horizonDays int
	now         func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a Client. Empty baseURL and non-positive horizon fall back to defaults.
func NewClient(baseURL string, timeout time.Duration, horizonDays int, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	c := &Client{
		baseURL:     baseURL,
		http:        &http.Client{Timeout: timeout},
		horizonDays: horizonDays,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DaysAhead returns the fractional number of days between now and at.
func (c *Client) DaysAhead(at time.Time) float64 {
	return at.Sub(c.now()).Hours() / 24
}

// ForecastAt returns the forecast hour containing at. Rides beyond the
// horizon fail with ErrForecastUnavailable, before any request is made when
// no local date the ride can fall on is published yet.
func (c *Client) ForecastAt(ctx context.Context, lat, lon float64, at time.Time) (*Forecast, error) {
	if c.DaysAhead(at) > float64(c.horizonDays) {
		return nil, apperrors.ErrForecastUnavailable
	}

	// The location's UTC offset is only known from the response, so ask for
	// every local date the instant can fall on (UTC-12 to UTC+14).
	start := at.UTC().Add(-12 * time.Hour)
	end := at.UTC().Add(14 * time.Hour)
	last := c.lastForecastDate()
	if dateOf(start).After(last) {
		return nil, apperrors.ErrForecastUnavailable
	}
	if dateOf(end).After(last) {
		end = last
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("hourly", hourlyFields)
	q.Set("start_date", start.Format(dateLayout))
	q.Set("end_date", end.Format(dateLayout))
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, apperrors.ErrWeatherUpstream.Wrap(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.ErrWeatherUpstream.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.ErrWeatherUpstream.Wrap(fmt.Errorf("status %d", resp.StatusCode))
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperrors.ErrWeatherUpstream.Wrap(fmt.Errorf("decode forecast: %w", err))
	}

	return body.pick(at)
}

// lastForecastDate is the final date the provider publishes, as midnight UTC.
func (c *Client) lastForecastDate() time.Time {
	return dateOf(c.now().UTC()).AddDate(0, 0, c.horizonDays-1)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type forecastResponse struct {
	Timezone         string `json:"timezone"`
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
	Hourly           struct {
		Time                     []string   `json:"time"`
		Temperature2m            []*float64 `json:"temperature_2m"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		WeatherCode              []*float64 `json:"weathercode"`
		WindSpeed10m             []*float64 `json:"windspeed_10m"`
	} `json:"hourly"`
}

func (r *forecastResponse) pick(at time.Time) (*Forecast, error) {
	local := at.UTC().Add(time.Duration(r.UTCOffsetSeconds) * time.Second).Truncate(time.Hour)
	target := local.Format(hourLayout)

	idx := -1
	for i, t := range r.Hourly.Time {
		if t == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Past the last published hour means the ride is simply too far out.
		if n := len(r.Hourly.Time); n > 0 && target > r.Hourly.Time[n-1] {
			return nil, apperrors.ErrForecastUnavailable
		}
		return nil, apperrors.ErrWeatherUpstream.Wrap(fmt.Errorf("hour %s not in forecast", target))
	}

	return &Forecast{
		Hour:                     target,
		Timezone:                 r.Timezone,
		TemperatureC:             valueAt(r.Hourly.Temperature2m, idx),
		PrecipitationProbability: int(math.Round(valueAt(r.Hourly.PrecipitationProbability, idx))),
		WeatherCode:              int(valueAt(r.Hourly.WeatherCode, idx)),
		WindSpeedKmh:             valueAt(r.Hourly.WindSpeed10m, idx),
	}, nil
}

func valueAt(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}
