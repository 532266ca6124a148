package gpx

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yigit/motobuddies/internal/pkg/apperrors"
)

const twoSegmentTrack = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>Stelvio</name>
    <trkseg>
      <trkpt lat="46.5000" lon="10.4500"><ele>1000</ele></trkpt>
      <trkpt lat="46.5100" lon="10.4500"><ele>1100</ele></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="46.5200" lon="10.4600"><ele>1050</ele></trkpt>
      <trkpt lat="46.5300" lon="10.4700"></trkpt>
      <trkpt lat="46.5400" lon="10.4800"><ele>1200</ele></trkpt>
    </trkseg>
  </trk>
  <trk><name>ignored</name>
    <trkseg><trkpt lat="0" lon="0"><ele>0</ele></trkpt></trkseg>
  </trk>
</gpx>`

const noTrack = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <wpt lat="46.5" lon="10.45"><name>Bar</name></wpt>
</gpx>`

const emptyTrack = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><name>empty</name><trkseg></trkseg></trk>
</gpx>`

func ele(v float64) *float64 { return &v }

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of latitude on the mean sphere
	got := Haversine(Point{Lat: 0, Lon: 0}, Point{Lat: 1, Lon: 0})
	want := EarthRadiusKm * math.Pi / 180
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Haversine = %f, want %f", got, want)
	}
	if d := Haversine(Point{Lat: 46.5, Lon: 10.45}, Point{Lat: 46.5, Lon: 10.45}); d != 0 {
		t.Fatalf("distance to self = %f", d)
	}
}

func TestParseUsesFirstTrackAllSegments(t *testing.T) {
	points, err := Parse([]byte(twoSegmentTrack))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(points) != 5 {
		t.Fatalf("got %d points, want 5", len(points))
	}
	if points[3].Ele != nil {
		t.Fatal("point without <ele> must have nil elevation")
	}
}

func TestSummarizeElevationWithGaps(t *testing.T) {
	s, err := ParseAndSummarize([]byte(twoSegmentTrack))
	if err != nil {
		t.Fatalf("ParseAndSummarize: %v", err)
	}
	if !s.Found {
		t.Fatal("expected a track")
	}
	// 1000->1100 (+100), 1100->1050 (-50), 1050->nil (0), nil->1200 (0)
	if s.ElevationGainM != 100 {
		t.Errorf("gain = %f, want 100", s.ElevationGainM)
	}
	if s.ElevationLossM != 50 {
		t.Errorf("loss = %f, want 50", s.ElevationLossM)
	}
	if s.DistanceKm <= 0 {
		t.Errorf("distance = %f", s.DistanceKm)
	}
	if s.Bounds.MinLat != 46.5 || s.Bounds.MaxLon != 10.48 {
		t.Errorf("bounds = %+v", s.Bounds)
	}
}

func TestSummarizeReversedTrack(t *testing.T) {
	points := []Point{
		{Lat: 45.0, Lon: 9.0, Ele: ele(120)},
		{Lat: 45.1, Lon: 9.2, Ele: ele(400)},
		{Lat: 45.3, Lon: 9.1, Ele: ele(250)},
		{Lat: 45.4, Lon: 9.4, Ele: ele(900)},
	}
	reversed := make([]Point, len(points))
	for i, p := range points {
		reversed[len(points)-1-i] = p
	}

	fwd, back := Summarize(points), Summarize(reversed)
	if math.Abs(fwd.DistanceKm-back.DistanceKm) > 1e-9 {
		t.Fatalf("distance not symmetric: %f vs %f", fwd.DistanceKm, back.DistanceKm)
	}
	if fwd.ElevationGainM != back.ElevationLossM || fwd.ElevationLossM != back.ElevationGainM {
		t.Fatalf("gain/loss not swapped: fwd=%+v back=%+v", fwd, back)
	}
}

func TestNoTrackIsNotAnError(t *testing.T) {
	for name, doc := range map[string]string{"no track": noTrack, "empty track": emptyTrack} {
		t.Run(name, func(t *testing.T) {
			s, err := ParseAndSummarize([]byte(doc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Found {
				t.Fatal("expected Found=false")
			}
		})
	}
}

func TestMalformedDocument(t *testing.T) {
	_, err := ParseAndSummarize([]byte(`<gpx version="1.1"><trk><trkseg><trkpt lat="1"`))
	if !errors.Is(err, apperrors.ErrMalformedGPX) {
		t.Fatalf("err = %v, want ErrMalformedGPX", err)
	}
	if errors.Is(err, apperrors.ErrGPXFetchFailed) {
		t.Fatal("parse error must not look like a fetch error")
	}
}

func TestFetcherDistinguishesFetchFromParse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.gpx", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(twoSegmentTrack))
	})
	mux.HandleFunc("/broken.gpx", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<gpx"))
	})
	mux.HandleFunc("/gone.gpx", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewFetcher(srv.Client(), 0)
	ctx := context.Background()

	s, err := f.FetchAndSummarize(ctx, srv.URL+"/ok.gpx")
	if err != nil || !s.Found {
		t.Fatalf("ok: summary=%+v err=%v", s, err)
	}

	if _, err := f.FetchAndSummarize(ctx, srv.URL+"/gone.gpx"); !errors.Is(err, apperrors.ErrGPXFetchFailed) {
		t.Fatalf("404: err = %v, want ErrGPXFetchFailed", err)
	}
	if _, err := f.FetchAndSummarize(ctx, srv.URL+"/broken.gpx"); !errors.Is(err, apperrors.ErrMalformedGPX) {
		t.Fatalf("broken: err = %v, want ErrMalformedGPX", err)
	}

	srv.Close()
	if _, err := f.FetchAndSummarize(ctx, srv.URL+"/ok.gpx"); !errors.Is(err, apperrors.ErrGPXFetchFailed) {
		t.Fatalf("closed server: err = %v, want ErrGPXFetchFailed", err)
	}
}

func TestFetcherRejectsOversizedDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(twoSegmentTrack))
	}))
	defer srv.Close()

	ctx := context.Background()

	small := NewFetcher(srv.Client(), int64(len(twoSegmentTrack)-20))
	_, err := small.FetchAndSummarize(ctx, srv.URL)
	if !errors.Is(err, apperrors.ErrGPXFetchFailed) {
		t.Fatalf("err = %v, want ErrGPXFetchFailed", err)
	}
	if errors.Is(err, apperrors.ErrMalformedGPX) {
		t.Fatal("a truncated download must not be reported as malformed")
	}

	exact := NewFetcher(srv.Client(), int64(len(twoSegmentTrack)))
	if s, err := exact.FetchAndSummarize(ctx, srv.URL); err != nil || !s.Found {
		t.Fatalf("document at the limit: summary=%+v err=%v", s, err)
	}
}
