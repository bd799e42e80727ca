package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/iliyamo/movies-from-a-hat/internal/model"
	"github.com/iliyamo/movies-from-a-hat/internal/tmdb"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[int]int
	fail  map[int]error
}

func (f *fakeFetcher) FetchDetail(_ context.Context, id int) (*tmdb.MovieDetail, *string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[int]int{}
	}
	f.calls[id]++
	if err := f.fail[id]; err != nil {
		return nil, nil, nil, err
	}
	rating := "R"
	return &tmdb.MovieDetail{
		TMDBID:      id,
		Title:       "movie",
		ReleaseDate: model.NewDate(2000, 1, id%28+1),
		Runtime:     100,
		IMDBID:      "tt",
		PosterPath:  "/p.jpg",
	}, &rating, []string{"Drama"}, nil
}

type fakeStore struct {
	rows    []model.Movie
	creates int
}

func (s *fakeStore) FindByTMDBIDs(_ context.Context, ids []int) ([]model.Movie, error) {
	var out []model.Movie
	for _, m := range s.rows {
		for _, id := range ids {
			if m.TMDBID != nil && *m.TMDBID == id {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, m *model.Movie, genres []string) (*model.Movie, error) {
	s.creates++
	m.ID = uint(len(s.rows) + 1)
	for _, g := range genres {
		m.Genres = append(m.Genres, model.Genre{Name: g})
	}
	s.rows = append(s.rows, *m)
	return m, nil
}

type recordingEvents struct{ types []string }

func (r *recordingEvents) PublishMovieEvent(_ context.Context, t string, _ *model.Movie) {
	r.types = append(r.types, t)
}

func tmdbIDs(ms []model.Movie) []int {
	out := make([]int, len(ms))
	for i, m := range ms {
		out[i] = *m.TMDBID
	}
	return out
}

func TestImportDedupesAndKeepsOrder(t *testing.T) {
	f := &fakeFetcher{}
	s := &fakeStore{}
	ev := &recordingEvents{}
	im := NewImporter(s, f, ev)

	got, err := im.Import(context.Background(), []int{3, 1, 3, 2})
	if err != nil {
		t.Fatal(err)
	}
	ids := tmdbIDs(got)
	want := []int{3, 1, 3, 2}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
	if got[0].ID != got[2].ID {
		t.Fatalf("duplicate ids map to different rows: %d vs %d", got[0].ID, got[2].ID)
	}
	for id, n := range f.calls {
		if n != 1 {
			t.Fatalf("id %d fetched %d times", id, n)
		}
	}
	if s.creates != 3 || len(ev.types) != 3 {
		t.Fatalf("creates = %d, events = %v", s.creates, ev.types)
	}
}

func TestImportSkipsStoredMovies(t *testing.T) {
	f := &fakeFetcher{}
	s := &fakeStore{}
	im := NewImporter(s, f, nil)

	if _, err := im.Import(context.Background(), []int{10, 11}); err != nil {
		t.Fatal(err)
	}
	f.calls = nil
	got, err := im.Import(context.Background(), []int{11, 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.calls) != 0 {
		t.Fatalf("stored ids were refetched: %v", f.calls)
	}
	if s.creates != 2 || len(got) != 2 || *got[0].TMDBID != 11 {
		t.Fatalf("creates = %d, got = %v", s.creates, tmdbIDs(got))
	}
}

func TestImportAbortsOnFetchError(t *testing.T) {
	f := &fakeFetcher{fail: map[int]error{2: tmdb.ErrUpstream}}
	s := &fakeStore{}
	im := NewImporter(s, f, nil)

	got, err := im.Import(context.Background(), []int{1, 2, 3})
	if !errors.Is(err, tmdb.ErrUpstream) {
		t.Fatalf("err = %v", err)
	}
	if got != nil || s.creates != 0 {
		t.Fatalf("partial result: %v, creates = %d", got, s.creates)
	}
}

func TestImportEmpty(t *testing.T) {
	im := NewImporter(&fakeStore{}, &fakeFetcher{}, nil)
	got, err := im.Import(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	p.PublishMovieEvent(context.Background(), "movie.created", &model.Movie{})
	NewPublisher("").PublishMovieEvent(context.Background(), "movie.created", &model.Movie{})
}

func TestNewMovieEvent(t *testing.T) {
	id := 115
	m := &model.Movie{ID: 4, Title: "The Big Lebowski", ReleaseDate: model.NewDate(1998, 3, 6), TMDBID: &id,
		Genres: []model.Genre{{Name: "Comedy"}}}
	ev := NewMovieEvent("movie.created", m)
	if ev.MovieID != 4 || ev.ReleaseDate != "1998-03-06" || *ev.TMDBID != 115 || ev.Genres[0] != "Comedy" {
		t.Fatalf("event = %+v", ev)
	}
}
