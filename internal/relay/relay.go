// Package relay runs chat turns against the inference endpoint and keeps
// the widget's transcript.
package relay

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"anoa.com/isfportal/pkg/logger"
)

type State int

const (
	Idle State = iota
	Sending
	Streaming
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case Streaming:
		return "streaming"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type Message struct {
	ID          int
	Text        string
	Sender      Sender
	IsStreaming bool
}

const (
	Greeting = "Hello! I'm the ISF AI assistant. How can I help you learn about our student club today?"
	Apology  = "Sorry, I'm having trouble connecting. Please try again later."
)

var ErrBusy = errors.New("relay: a turn is already in flight")

// Stream yields text fragments in order and io.EOF after the last one.
// It cannot be restarted.
type Stream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

type Inference interface {
	Open(ctx context.Context, prompt string) (Stream, error)
}

// TurnError is returned by Submit when a turn failed. The transcript
// already shows the apology in place of the reply.
type TurnError struct {
	Err error
}

func (e *TurnError) Error() string {
	return "chat turn failed: " + e.Err.Error()
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

type Relay struct {
	inference Inference

	mu         sync.Mutex
	state      State
	transcript []Message
	nextID     int
	observer   func(State)
}

func New(inference Inference) *Relay {
	r := &Relay{inference: inference}
	r.resetLocked()
	return r
}

// OnChange registers fn to run after every state or transcript change.
func (r *Relay) OnChange(fn func(State)) {
	r.mu.Lock()
	r.observer = fn
	r.mu.Unlock()
}

// Open resets the transcript to the greeting. A turn still in flight
// keeps running but its reply no longer has a place in the transcript.
func (r *Relay) Open() {
	r.mu.Lock()
	r.resetLocked()
	r.mu.Unlock()
	r.notify()
}

func (r *Relay) resetLocked() {
	r.nextID++
	r.transcript = []Message{{ID: r.nextID, Text: Greeting, Sender: SenderBot}}
}

func (r *Relay) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Relay) Transcript() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.transcript...)
}

// Submit runs one turn and returns when it has ended. Blank input is
// ignored; a second turn while one is in flight gets ErrBusy.
func (r *Relay) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	r.mu.Lock()
	if r.state != Idle {
		r.mu.Unlock()
		return ErrBusy
	}
	r.nextID++
	r.transcript = append(r.transcript, Message{ID: r.nextID, Text: text, Sender: SenderUser})
	r.nextID++
	botID := r.nextID
	r.transcript = append(r.transcript, Message{ID: botID, Sender: SenderBot, IsStreaming: true})
	r.state = Sending
	r.mu.Unlock()
	r.notify()

	stream, err := r.inference.Open(ctx, text)
	if err != nil {
		return r.fail(botID, err)
	}
	defer stream.Close()

	r.update(botID, func(m *Message) {}, Streaming)

	for {
		fragment, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return r.fail(botID, err)
		}
		r.update(botID, func(m *Message) { m.Text += fragment }, Streaming)
	}

	r.update(botID, func(m *Message) { m.IsStreaming = false }, Idle)
	return nil
}

func (r *Relay) fail(botID int, err error) error {
	logger.Warn().Err(err).Msg("chat turn failed")
	r.update(botID, func(m *Message) {
		m.Text = Apology
		m.IsStreaming = false
	}, Error)

	r.mu.Lock()
	r.state = Idle
	r.mu.Unlock()
	r.notify()
	return &TurnError{Err: err}
}

// update applies fn to the message with id, if it is still shown, and
// moves to state.
func (r *Relay) update(id int, fn func(*Message), state State) {
	r.mu.Lock()
	for i := range r.transcript {
		if r.transcript[i].ID == id {
			fn(&r.transcript[i])
			break
		}
	}
	r.state = state
	r.mu.Unlock()
	r.notify()
}

func (r *Relay) notify() {
	r.mu.Lock()
	fn, state := r.observer, r.state
	r.mu.Unlock()
	if fn != nil {
		fn(state)
	}
}
