// Package desk runs support desk actions against a session: processing a
// ticket into its history, clearing it, and listing recent tickets.
package desk

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/comigor/support-agent/internal/history"
	"github.com/comigor/support-agent/internal/llm"
	"github.com/comigor/support-agent/internal/logger"
	"github.com/comigor/support-agent/internal/session"
	"github.com/comigor/support-agent/internal/ticket"
)

// DefaultDisplayWindow is how many tickets History shows.
const DefaultDisplayWindow = 5

// ErrTicketNotFound is returned by Ticket for numbers outside the session history.
var ErrTicketNotFound = errors.New("ticket not found")

// ServiceHint is shown alongside completion service failures.
const ServiceHint = "Make sure your Gemini API key is valid and you're using the free tier."

// Entry is a record with its 1-based position in the session history.
type Entry struct {
	Number int `json:"number"`
	ticket.Record
}

// Service is the orchestration layer between the forms and the processor.
type Service struct {
	processor     *ticket.Processor
	displayWindow int
	now           func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a Service. A non-positive displayWindow falls back to DefaultDisplayWindow.
func New(p *ticket.Processor, displayWindow int, opts ...Option) *Service {
	if displayWindow < 1 {
		displayWindow = DefaultDisplayWindow
	}
	s := &Service{processor: p, displayWindow: displayWindow, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit processes a ticket with the session's recent history as context and
// appends the resulting record. Nothing is appended unless both completions
// succeed.
func (s *Service) Submit(ctx context.Context, sess *session.Session, text string, source ticket.Source) (Entry, error) {
	var entry Entry
	err := sess.Do(func(store history.Store) error {
		recent, err := store.Recent(s.processor.ContextWindow())
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}

		res, err := s.processor.Process(ctx, text, source, recent)
		if err != nil {
			return err
		}

		rec := ticket.NewRecord(s.now(), text, source, res)
		if err := store.Append(rec); err != nil {
			return fmt.Errorf("record ticket: %w", err)
		}
		n, err := store.Len()
		if err != nil {
			return fmt.Errorf("count history: %w", err)
		}
		entry = Entry{Number: n, Record: rec}
		return nil
	})
	if err != nil {
		if errors.Is(err, ticket.ErrEmptyTicket) {
			logger.L.Debug("empty ticket rejected", "session", sess.ID)
		} else {
			logger.L.Error("ticket processing failed", "session", sess.ID, "source", source, "error", err)
		}
		return Entry{}, err
	}
	logger.L.Info("ticket processed", "session", sess.ID, "source", source, "number", entry.Number)
	return entry, nil
}

// Clear empties the session history.
func (s *Service) Clear(sess *session.Session) error {
	logger.L.Info("clearing ticket history", "session", sess.ID)
	return sess.Do(func(store history.Store) error { return store.Clear() })
}

// History returns the most recent tickets of the session, newest first.
func (s *Service) History(sess *session.Session) ([]Entry, error) {
	var entries []Entry
	err := sess.Do(func(store history.Store) error {
		n, err := store.Len()
		if err != nil {
			return err
		}
		recs, err := store.Recent(s.displayWindow)
		if err != nil {
			return err
		}
		entries = make([]Entry, 0, len(recs))
		for i, rec := range recs {
			entries = append(entries, Entry{Number: n - len(recs) + i + 1, Record: rec})
		}
		slices.Reverse(entries)
		return nil
	})
	return entries, err
}

// Ticket returns the ticket with the given 1-based number.
func (s *Service) Ticket(sess *session.Session, number int) (Entry, error) {
	var entry Entry
	err := sess.Do(func(store history.Store) error {
		recs, err := history.All(store)
		if err != nil {
			return err
		}
		if number < 1 || number > len(recs) {
			return fmt.Errorf("%w: #%d", ErrTicketNotFound, number)
		}
		entry = Entry{Number: number, Record: recs[number-1]}
		return nil
	})
	return entry, err
}

// TicketAt is Ticket that also requires the record to have been processed at
// at, so a number reused after Clear does not resolve to a newer ticket.
func (s *Service) TicketAt(sess *session.Session, number int, at time.Time) (Entry, error) {
	entry, err := s.Ticket(sess, number)
	if err != nil {
		return Entry{}, err
	}
	if !entry.Timestamp.Equal(at) {
		return Entry{}, fmt.Errorf("%w: #%d processed at %s", ErrTicketNotFound, number, at.Format(time.DateTime))
	}
	return entry, nil
}

// ReplyFilename names the downloadable reply for a ticket processed at t.
func ReplyFilename(t time.Time) string {
	return "reply_" + t.Format("20060102_150405") + ".txt"
}

// Notice is an error rendered for the user.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

const (
	LevelWarning = "warning"
	LevelError   = "error"
)

// Describe turns an error from Submit, Ticket or Clear into a user-facing notice.
func Describe(err error) Notice {
	var se *llm.ServiceError
	switch {
	case errors.Is(err, ticket.ErrEmptyTicket):
		return Notice{Level: LevelWarning, Message: "Please enter a support ticket"}
	case errors.Is(err, ticket.ErrUnknownSource), errors.Is(err, ErrTicketNotFound):
		return Notice{Level: LevelWarning, Message: err.Error()}
	case errors.As(err, &se):
		return Notice{Level: LevelError, Message: "Error processing ticket: " + err.Error(), Hint: ServiceHint}
	default:
		return Notice{Level: LevelError, Message: "Error processing ticket: " + err.Error()}
	}
}
