package utils

import (
	"bytes"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	tok, err := NewSessionToken("secret", "dude@example.com", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ParseSessionToken("secret", tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Email != "dude@example.com" || claims.ID != tok.ID {
		t.Fatalf("claims = %+v, token id %s", claims, tok.ID)
	}
	if _, err := ParseSessionToken("other", tok.Token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("wrong secret: got %v", err)
	}
}

func TestSessionTokenExpired(t *testing.T) {
	tok, err := NewSessionToken("secret", "dude@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseSessionToken("secret", tok.Token); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestHashSessionIDStable(t *testing.T) {
	a, b := HashSessionID("abc"), HashSessionID("abc")
	if a != b || len(a) != 64 {
		t.Fatalf("hash %q %q", a, b)
	}
	if a == HashSessionID("abd") {
		t.Fatal("distinct ids hashed equal")
	}
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("hunter2", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(h, "hunter2") || VerifyPassword(h, "hunter3") {
		t.Fatal("verify mismatch")
	}
	if VerifyPassword("", "") {
		t.Fatal("empty hash matched")
	}
}

func TestPasswordHashingBounds(t *testing.T) {
	h, err := HashPassword("hunter2", 99)
	if err != nil {
		t.Fatal(err)
	}
	if cost, err := bcrypt.Cost([]byte(h)); err != nil || cost != bcrypt.DefaultCost {
		t.Fatalf("cost = %d (%v), want default %d", cost, err, bcrypt.DefaultCost)
	}
	if _, err := HashPassword(strings.Repeat("x", 73), 4); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("err = %v, want ErrPasswordTooLong", err)
	}
}

func TestRedactSecrets(t *testing.T) {
	in := `GET https://api.example.org/3/movie/1?api_key=s3cr3t&append_to_response=release_dates`
	out := RedactSecrets(in)
	if strings.Contains(out, "s3cr3t") || !strings.Contains(out, "api_key=REDACTED&append") {
		t.Fatalf("got %q", out)
	}
}

func TestLoggerRedactsStringsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "debug")
	log.Info("fetch", "url", "http://x/search/movie?api_key=s3cr3t&query=a",
		"err", errors.New(`Get "http://x/?api_key=s3cr3t": timeout`))
	if strings.Contains(buf.String(), "s3cr3t") {
		t.Fatalf("secret leaked: %s", buf.String())
	}
}

type secretRequest struct{ u *url.URL }

func (r secretRequest) LogValue() slog.Value {
	return slog.GroupValue(slog.Any("url", r.u))
}

func TestLoggerRedactsStringersAndGroups(t *testing.T) {
	u, err := url.Parse("https://api.example.org/3/search/movie?api_key=s3cr3t&query=dude")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	log := NewLogger(&buf, "debug")
	log.Info("stringer", "url", u)
	log.Info("group", slog.Group("req", slog.Any("url", u), slog.String("raw", u.String())))
	log.Info("valuer", "req", secretRequest{u: u})
	log.With("base", u).Info("with")

	out := buf.String()
	if strings.Contains(out, "s3cr3t") {
		t.Fatalf("secret leaked: %s", out)
	}
	if n := strings.Count(out, "api_key=REDACTED"); n != 5 {
		t.Fatalf("redacted %d values, want 5: %s", n, out)
	}
}
