package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHandleMessageAppendsLine(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	id := 115
	for _, typ := range []string{MovieImported, MovieDeleted} {
		body, _ := json.Marshal(MovieEvent{
			Type:        typ,
			MovieID:     7,
			Title:       "The Big Lebowski",
			ReleaseDate: "1998-03-06",
			TMDBID:      &id,
			Genres:      []string{"Comedy", "Crime"},
			OccurredAt:  "2024-01-01T00:00:00Z",
		})
		if err := HandleMessage(dir, body); err != nil {
			t.Fatalf("handle %s: %v", typ, err)
		}
	}

	b, err := os.ReadFile(filepath.Join(dir, EventLogFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), b)
	}
	want := `[2024-01-01T00:00:00Z] movie.imported | movie_id=7 | title="The Big Lebowski" | release_date=1998-03-06 | tmdb_id=115 | genres=[Comedy,Crime]`
	if lines[0] != want {
		t.Fatalf("line = %q\nwant   %q", lines[0], want)
	}
	if !strings.Contains(lines[1], "movie.deleted") {
		t.Fatalf("second line = %q", lines[1])
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	if err := HandleMessage(dir, []byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
	if err := HandleMessage(dir, []byte(`{"movie_id": 1}`)); err == nil {
		t.Fatal("expected error for untyped event")
	}
}
