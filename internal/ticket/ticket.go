// Package ticket holds the support ticket domain: where a ticket came from,
// the record kept once it is processed, the prompts sent to the completion
// service and the processor that issues them.
package ticket

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	// ErrEmptyTicket is returned when the ticket text is empty after trimming.
	ErrEmptyTicket = errors.New("please enter a support ticket")
	// ErrUnknownSource is returned by ParseSource for unrecognised names.
	ErrUnknownSource = errors.New("unknown ticket source")
)

// Source is the channel a ticket arrived through. The zero value means the
// source is not tracked.
type Source string

const (
	SourceNone            Source = ""
	SourceEmail           Source = "Email"
	SourceChat            Source = "Chat"
	SourceVoiceTranscript Source = "Voice Transcript"
	SourceManualEntry     Source = "Manual Entry"
)

// Sources lists the selectable sources in display order.
var Sources = []Source{SourceEmail, SourceChat, SourceVoiceTranscript, SourceManualEntry}

// ParseSource matches a display name case-insensitively. The empty string
// yields SourceNone.
func ParseSource(name string) (Source, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SourceNone, nil
	}
	for _, s := range Sources {
		if strings.EqualFold(string(s), name) {
			return s, nil
		}
	}
	return SourceNone, fmt.Errorf("%w: %q", ErrUnknownSource, name)
}

// String returns the display name, or "Unspecified" for SourceNone.
func (s Source) String() string {
	if s == SourceNone {
		return "Unspecified"
	}
	return string(s)
}

// ExcerptLength is the number of characters of the raw ticket kept in a Record.
const ExcerptLength = 100

const ellipsis = "..."

// Excerpt returns the first ExcerptLength characters of text followed by an
// ellipsis, or text unchanged when it is short enough.
func Excerpt(text string) string {
	if utf8.RuneCountInString(text) <= ExcerptLength {
		return text
	}
	return string([]rune(text)[:ExcerptLength]) + ellipsis
}

// Record is one processed ticket. Records are never modified once built.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source,omitempty"`
	Excerpt   string    `json:"ticket"`
	Summary   string    `json:"summary"`
	Reply     string    `json:"reply"`
}

// NewRecord builds the record for a ticket whose completions both succeeded.
func NewRecord(at time.Time, text string, source Source, res Result) Record {
	return Record{
		Timestamp: at,
		Source:    source,
		Excerpt:   Excerpt(text),
		Summary:   res.Summary,
		Reply:     res.Reply,
	}
}
