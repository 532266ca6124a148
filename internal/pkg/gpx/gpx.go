// Package gpx turns GPX documents into ride track summaries.
package gpx

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	gpxgo "github.com/tkrajina/gpxgo/gpx"
	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

// EarthRadiusKm is the mean radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point is one track point. Ele is nil when the document has no elevation.
type Point struct {
	Lat float64
	Lon float64
	Ele *float64
}

// Bounds is the bounding box of a track.
type Bounds struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// Summary describes the first track of a document.
// Found is false when the document has no track or the track has no points.
type Summary struct {
	Found          bool
	DistanceKm     float64
	ElevationGainM float64
	ElevationLossM float64
	Points         []Point
	Bounds         Bounds
}

// Parse extracts the points of the first <trk>, all segments in order.
func Parse(data []byte) ([]Point, error) {
	doc, err := gpxgo.ParseBytes(data)
	if err != nil {
		return nil, apperrors.ErrMalformedGPX.Wrap(err)
	}
	if len(doc.Tracks) == 0 {
		return nil, nil
	}

	var points []Point
	for _, seg := range doc.Tracks[0].Segments {
		for _, p := range seg.Points {
			pt := Point{Lat: p.Latitude, Lon: p.Longitude}
			if p.Elevation.NotNull() {
				ele := p.Elevation.Value()
				pt.Ele = &ele
			}
			points = append(points, pt)
		}
	}
	return points, nil
}

// Summarize computes distance and elevation totals over consecutive points.
func Summarize(points []Point) Summary {
	if len(points) == 0 {
		return Summary{}
	}

	s := Summary{
		Found:  true,
		Points: points,
		Bounds: Bounds{
			MinLat: points[0].Lat, MaxLat: points[0].Lat,
			MinLon: points[0].Lon, MaxLon: points[0].Lon,
		},
	}

	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		s.DistanceKm += Haversine(prev, cur)

		// missing elevation on either side contributes nothing
		if prev.Ele != nil && cur.Ele != nil {
			delta := *cur.Ele - *prev.Ele
			if delta > 0 {
				s.ElevationGainM += delta
			} else {
				s.ElevationLossM -= delta
			}
		}

		s.Bounds.MinLat = math.Min(s.Bounds.MinLat, cur.Lat)
		s.Bounds.MaxLat = math.Max(s.Bounds.MaxLat, cur.Lat)
		s.Bounds.MinLon = math.Min(s.Bounds.MinLon, cur.Lon)
		s.Bounds.MaxLon = math.Max(s.Bounds.MaxLon, cur.Lon)
	}

	return s
}

// ParseAndSummarize is Parse followed by Summarize.
func ParseAndSummarize(data []byte) (Summary, error) {
	points, err := Parse(data)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(points), nil
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLon := toRadians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Fetcher downloads stored GPX files over HTTP.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewFetcher returns a Fetcher; a nil client gets a 15s default.
func NewFetcher(client *http.Client, maxBytes int64) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Fetcher{client: client, maxBytes: maxBytes}
}

// Fetch returns the raw document. Transport failures, non-2xx responses and
// documents over the size limit are reported as ErrGPXFetchFailed, never as
// parse errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.ErrGPXFetchFailed.Wrap(err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.ErrGPXFetchFailed.Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.ErrGPXFetchFailed.Wrap(fmt.Errorf("status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, apperrors.ErrGPXFetchFailed.Wrap(err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, apperrors.ErrGPXFetchFailed.Wrap(fmt.Errorf("document exceeds %d bytes", f.maxBytes))
	}
	return data, nil
}

// FetchAndSummarize downloads and summarizes the document at url.
func (f *Fetcher) FetchAndSummarize(ctx context.Context, url string) (Summary, error) {
	data, err := f.Fetch(ctx, url)
	if err != nil {
		return Summary{}, err
	}
	return ParseAndSummarize(data)
}
