package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

var apiKeyPattern = regexp.MustCompile(`api_key=[^&\s"]*`)

// RedactSecrets replaces every api_key query value in s.
func RedactSecrets(s string) string {
	if !strings.Contains(s, "api_key=") {
		return s
	}
	return apiKeyPattern.ReplaceAllString(s, "api_key=REDACTED")
}

// redactAttr masks api keys in every logged value: strings, errors,
// fmt.Stringer values such as *url.URL, and the members of groups.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	a.Value = redactValue(a.Value)
	return a
}

func redactValue(v slog.Value) slog.Value {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		if s := v.String(); strings.Contains(s, "api_key=") {
			return slog.StringValue(RedactSecrets(s))
		}
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = slog.Attr{Key: ga.Key, Value: redactValue(ga.Value)}
		}
		return slog.GroupValue(out...)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			if x != nil {
				return slog.StringValue(RedactSecrets(x.Error()))
			}
		case fmt.Stringer:
			if x != nil {
				return slog.StringValue(RedactSecrets(x.String()))
			}
		}
	}
	return v
}

// NewLogger builds a JSON logger writing to w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		ReplaceAttr: redactAttr,
	}))
}

// InitLogger installs the process-wide JSON logger on stdout.
func InitLogger(level string) {
	slog.SetDefault(NewLogger(os.Stdout, level))
}
