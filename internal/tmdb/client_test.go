package tmdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iliyamo/movies-from-a-hat/internal/utils"
)

const lebowskiDetail = `{
  "id": 115,
  "title": "The Big Lebowski",
  "release_date": "1998-03-06",
  "runtime": 117,
  "imdb_id": "tt0118715",
  "poster_path": "/3XRC8Q2w0gYTcV7mYbo9X2pqAUP.jpg",
  "adult": false,
  "genres": [{"id": 35, "name": "Comedy"}, {"id": 80, "name": "Crime"}],
  "release_dates": {"results": [
	{"iso_3166_1": "GB", "release_dates": [{"certification": "18", "iso_639_1": "", "release_date": "1998-04-24T00:00:00.000Z", "type": 3}]},
	{"iso_3166_1": "US", "release_dates": [
	  {"certification": "", "iso_639_1": "", "release_date": "1998-01-18T00:00:00.000Z", "type": 1},
	  {"certification": "R", "iso_639_1": "", "release_date": "1998-03-06T00:00:00.000Z", "type": 3},
	  {"certification": "", "iso_639_1": "", "release_date": "1998-10-27T00:00:00.000Z", "type": 5}
	]}
  ]}
}`

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "s3cr3t", 2*time.Second)
}

func TestRatingFromReleaseDates(t *testing.T) {
	rd := ReleaseDates{Results: []CountryReleases{
		{ISO31661: "DE", ReleaseDates: []ReleaseDate{{Certification: "16"}}},
		{ISO31661: "US", ReleaseDates: []ReleaseDate{
			{Certification: "PG"}, {Certification: "R"}, {Certification: ""},
		}},
	}}
	got := RatingFromReleaseDates(rd, "US")
	if got == nil || *got != "R" {
		t.Fatalf("rating = %v, want R", got)
	}
	if got := RatingFromReleaseDates(rd, "FR"); got != nil {
		t.Fatalf("rating for missing region = %q", *got)
	}
	empty := ReleaseDates{Results: []CountryReleases{{ISO31661: "US", ReleaseDates: []ReleaseDate{{}}}}}
	if got := RatingFromReleaseDates(empty, "US"); got != nil {
		t.Fatalf("rating without certification = %q", *got)
	}
}

func TestFetchDetail(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/115" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("api_key") != "s3cr3t" || q.Get("append_to_response") != "release_dates" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, lebowskiDetail)
	})
	d, rating, genres, err := c.FetchDetail(context.Background(), 115)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if d.TMDBID != 115 || d.Title != "The Big Lebowski" || d.ReleaseDate.String() != "1998-03-06" {
		t.Fatalf("detail = %+v", d)
	}
	if rating == nil || *rating != "R" {
		t.Fatalf("rating = %v", rating)
	}
	if strings.Join(genres, ",") != "Comedy,Crime" {
		t.Fatalf("genres = %v", genres)
	}
	m := d.ToMovie(rating)
	if *m.TMDBID != 115 || *m.IMDBID != "tt0118715" || *m.Runtime != 117 || *m.Rating != "R" {
		t.Fatalf("movie = %+v", m)
	}
}

func TestFetchDetailMissingField(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 1, "title": "x", "release_date": "2000-01-01", "adult": false, "release_dates": {"results": []}}`)
	})
	if _, _, _, err := c.FetchDetail(context.Background(), 1); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("err = %v, want ErrInvalidPayload", err)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{"status_code":34}`, ErrBadParams},
		{"unauthorized", http.StatusUnauthorized, `{}`, ErrBadParams},
		{"server error", http.StatusInternalServerError, `oops`, ErrUpstream},
		{"bad gateway", http.StatusBadGateway, ``, ErrUpstream},
		{"garbage", http.StatusOK, `not json`, ErrInvalidPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})
			_, err := c.Search(context.Background(), "lebowski", nil, 0)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestTransportFailureIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()
	c := NewClient(srv.URL, "s3cr3t", time.Second)
	_, err := c.Search(context.Background(), "x", nil, 0)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("err = %v", err)
	}
	if strings.Contains(err.Error(), "s3cr3t") {
		t.Fatalf("api key leaked in error: %v", err)
	}
}

func TestSearchParams(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("query") != "big lebowski" || q.Get("include_adult") != "false" || q.Get("year") != "1998" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		if q.Has("page") {
			t.Errorf("page sent without being set")
		}
		fmt.Fprint(w, `{"page":1,"results":[{"id":115,"title":"The Big Lebowski","overview":"","release_date":"1998-03-06","poster_path":null,"genre_ids":[35,80]}]}`)
	})
	year := 1998
	res, err := c.Search(context.Background(), "big lebowski", &year, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || *res[0].ID != 115 || res[0].PosterPath != nil {
		t.Fatalf("results = %+v", res)
	}
}

func TestAdmissionGateLimitsConcurrency(t *testing.T) {
	var inFlight, peak int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		fmt.Fprint(w, lebowskiDetail)
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, _, err := c.FetchDetail(context.Background(), 115); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if peak > MaxConcurrent {
		t.Fatalf("peak concurrency %d > %d", peak, MaxConcurrent)
	}
}

func TestLogsDoNotContainAPIKey(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(utils.NewLogger(&buf, "debug"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := c.Search(context.Background(), "x", nil, 0); !errors.Is(err, ErrBadParams) {
		t.Fatalf("err = %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected a log line")
	}
	if strings.Contains(buf.String(), "s3cr3t") {
		t.Fatalf("api key leaked: %s", buf.String())
	}
}
