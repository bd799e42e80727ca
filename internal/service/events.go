package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/movies-from-a-hat/internal/model"
	"github.com/iliyamo/movies-from-a-hat/internal/queue"
)

// EventPublisher receives committed movie changes.
type EventPublisher interface {
	PublishMovieEvent(ctx context.Context, eventType string, m *model.Movie)
}

// Publisher sends movie events to RabbitMQ.  A Publisher with an empty URL
// (or a nil *Publisher) drops every event.  Failures are logged and never
// reach the caller.
type Publisher struct {
	URL     string
	Timeout time.Duration
}

// NewPublisher returns a publisher for url; an empty url disables publishing.
func NewPublisher(url string) *Publisher {
	return &Publisher{URL: url, Timeout: 5 * time.Second}
}

// NewMovieEvent builds the wire form of a change to m.
func NewMovieEvent(eventType string, m *model.Movie) queue.MovieEvent {
	genres := make([]string, 0, len(m.Genres))
	for _, g := range m.Genres {
		genres = append(genres, g.Name)
	}
	return queue.MovieEvent{
		Type:        eventType,
		MovieID:     m.ID,
		Title:       m.Title,
		ReleaseDate: m.ReleaseDate.String(),
		TMDBID:      m.TMDBID,
		Genres:      genres,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// PublishMovieEvent publishes a persistent JSON message to the movie.events
// queue.
func (p *Publisher) PublishMovieEvent(ctx context.Context, eventType string, m *model.Movie) {
	if p == nil || p.URL == "" || m == nil {
		return
	}
	if err := p.publish(ctx, NewMovieEvent(eventType, m)); err != nil {
		slog.Warn("rabbitmq: publish movie event failed", "type", eventType, "movie_id", m.ID, "err", err)
	}
}

func (p *Publisher) publish(ctx context.Context, ev queue.MovieEvent) error {
	// the request context may be cancelled once the response is written
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.Timeout)
	defer cancel()

	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.Timeout)})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queue.MovieEventsQueue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",                     // default exchange
		queue.MovieEventsQueue, // routing key = queue name
		false,                  // mandatory
		false,                  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
}
