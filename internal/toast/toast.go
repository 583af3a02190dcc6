// Package toast carries short, dismissable user-facing messages from the
// managers to whatever view is active.
package toast

import (
	"time"

	"github.com/google/uuid"

	"github.com/five82/shopaura/internal/state"
)

// Level classifies a message.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Message is one toast.
type Message struct {
	ID    string
	Level Level
	Text  string
	At    time.Time
}

// Notifier accepts toasts.
type Notifier interface {
	Info(text string)
	Success(text string)
	Error(text string)
}

const defaultLimit = 20

// Queue keeps the most recent messages until they are dismissed.
type Queue struct {
	store state.Store[[]Message]
	Limit int
}

var _ Notifier = (*Queue)(nil)

func (q *Queue) Info(text string)    { q.push(LevelInfo, text) }
func (q *Queue) Success(text string) { q.push(LevelSuccess, text) }
func (q *Queue) Error(text string)   { q.push(LevelError, text) }

func (q *Queue) push(level Level, text string) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	msg := Message{ID: uuid.NewString(), Level: level, Text: text, At: time.Now()}
	q.store.Update(func(msgs *[]Message) {
		*msgs = append(*msgs, msg)
		if over := len(*msgs) - limit; over > 0 {
			*msgs = append((*msgs)[:0], (*msgs)[over:]...)
		}
	})
}

// Dismiss removes the message with the given id. Unknown ids are ignored.
func (q *Queue) Dismiss(id string) {
	q.store.Update(func(msgs *[]Message) {
		for i, m := range *msgs {
			if m.ID == id {
				*msgs = append((*msgs)[:i], (*msgs)[i+1:]...)
				return
			}
		}
	})
}

// Messages returns the pending messages, oldest first.
func (q *Queue) Messages() []Message {
	var out []Message
	q.store.Read(func(msgs []Message) {
		out = state.CloneSlice(msgs)
	})
	return out
}

// Latest returns the newest message, if any.
func (q *Queue) Latest() (Message, bool) {
	var (
		out Message
		ok  bool
	)
	q.store.Read(func(msgs []Message) {
		if len(msgs) > 0 {
			out, ok = msgs[len(msgs)-1], true
		}
	})
	return out, ok
}

// Subscribe signals whenever the queue changes.
func (q *Queue) Subscribe() (<-chan struct{}, func()) {
	return q.store.Subscribe()
}

// Discard drops every message.
type Discard struct{}

func (Discard) Info(string)    {}
func (Discard) Success(string) {}
func (Discard) Error(string)   {}
