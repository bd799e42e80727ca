package queue

// The consumer listens to the movie.events queue and appends one line per
// event to <dir>/movie_events.log.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventLogFile is the name of the file the consumer appends to.
const EventLogFile = "movie_events.log"

// StartMovieEventConsumer connects to the broker at url, declares the
// movie.events queue (durable) and consumes it until ctx is cancelled.
// Dial failures are retried with exponential backoff capped at 30s;
// a message that cannot be handled is rejected without requeue.
func StartMovieEventConsumer(ctx context.Context, url, dir string) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			slog.Warn("movie-events consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, dir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("movie-events consumer: loop ended, reconnecting", "err", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		slog.Warn("movie-events consumer: set QoS failed", "err", err)
	}

	if _, err := ch.QueueDeclare(MovieEventsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(MovieEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := HandleMessage(dir, d.Body); err != nil {
				slog.Error("movie-events consumer: handle message failed", "err", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one MovieEvent and appends its log line.
func HandleMessage(dir string, body []byte) error {
	var ev MovieEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, EventLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	tmdb := "-"
	if ev.TMDBID != nil {
		tmdb = fmt.Sprintf("%d", *ev.TMDBID)
	}
	line := fmt.Sprintf("[%s] %s | movie_id=%d | title=%q | release_date=%s | tmdb_id=%s | genres=[%s]\n",
		ev.OccurredAt, ev.Type, ev.MovieID, ev.Title, ev.ReleaseDate, tmdb, strings.Join(ev.Genres, ","))

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
