package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceStream struct {
	fragments []string
	failAt    int
	err       error
	closed    bool
}

func (s *sliceStream) Next(ctx context.Context) (string, error) {
	if s.err != nil && s.failAt == 0 {
		return "", s.err
	}
	if len(s.fragments) == 0 {
		return "", io.EOF
	}
	s.failAt--
	f := s.fragments[0]
	s.fragments = s.fragments[1:]
	return f, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

type fakeInference struct {
	stream  *sliceStream
	openErr error
	prompts []string
	block   chan struct{}
}

func (f *fakeInference) Open(ctx context.Context, prompt string) (Stream, error) {
	f.prompts = append(f.prompts, prompt)
	if f.block != nil {
		<-f.block
	}
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.stream, nil
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.states) == 0 || l.states[len(l.states)-1] != s {
		l.states = append(l.states, s)
	}
}

func (l *stateLog) get() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func TestSubmitStreamsReply(t *testing.T) {
	stream := &sliceStream{fragments: []string{"Hi", " there"}}
	r := New(&fakeInference{stream: stream})
	log := &stateLog{}
	r.OnChange(log.record)

	require.NoError(t, r.Submit(context.Background(), "hello"))

	assert.Equal(t, []State{Sending, Streaming, Idle}, log.get())
	assert.Equal(t, Idle, r.State())
	assert.True(t, stream.closed)

	transcript := r.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, Greeting, transcript[0].Text)
	assert.Equal(t, Message{ID: transcript[1].ID, Text: "hello", Sender: SenderUser}, transcript[1])

	reply := transcript[2]
	assert.Equal(t, SenderBot, reply.Sender)
	assert.Equal(t, "Hi there", reply.Text)
	assert.False(t, reply.IsStreaming)
}

func TestSubmitFailures(t *testing.T) {
	tcases := []struct {
		name       string
		inference  *fakeInference
		wantStates []State
	}{
		{
			name:       "network failure while sending",
			inference:  &fakeInference{openErr: errors.New("dial tcp: connection refused")},
			wantStates: []State{Sending, Error, Idle},
		},
		{
			name:       "non-success response",
			inference:  &fakeInference{openErr: &StatusError{Status: 500, Message: "Failed to get response from Gemini API"}},
			wantStates: []State{Sending, Error, Idle},
		},
		{
			name:       "stream breaks after a fragment",
			inference:  &fakeInference{stream: &sliceStream{fragments: []string{"Hi"}, failAt: 1, err: io.ErrUnexpectedEOF}},
			wantStates: []State{Sending, Streaming, Error, Idle},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			r := New(tc.inference)
			log := &stateLog{}
			r.OnChange(log.record)

			err := r.Submit(context.Background(), "hello")
			var turnErr *TurnError
			require.ErrorAs(t, err, &turnErr)

			assert.Equal(t, tc.wantStates, log.get())
			assert.Equal(t, Idle, r.State())

			transcript := r.Transcript()
			last := transcript[len(transcript)-1]
			assert.Equal(t, Apology, last.Text)
			assert.False(t, last.IsStreaming)
		})
	}
}

func TestSubmitIgnoresBlankInput(t *testing.T) {
	inf := &fakeInference{stream: &sliceStream{}}
	r := New(inf)

	require.NoError(t, r.Submit(context.Background(), "   "))
	assert.Empty(t, inf.prompts)
	assert.Len(t, r.Transcript(), 1)
}

func TestSubmitWhileBusy(t *testing.T) {
	inf := &fakeInference{stream: &sliceStream{fragments: []string{"ok"}}, block: make(chan struct{})}
	r := New(inf)

	done := make(chan error, 1)
	go func() { done <- r.Submit(context.Background(), "first") }()

	require.Eventually(t, func() bool { return r.State() == Sending }, timeout, tick)
	assert.ErrorIs(t, r.Submit(context.Background(), "second"), ErrBusy)

	close(inf.block)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"first"}, inf.prompts)
}

func TestOpenResetsTranscript(t *testing.T) {
	r := New(&fakeInference{stream: &sliceStream{fragments: []string{"Hi"}}})
	require.NoError(t, r.Submit(context.Background(), "hello"))
	require.Len(t, r.Transcript(), 3)

	r.Open()

	transcript := r.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, Greeting, transcript[0].Text)
	assert.Equal(t, SenderBot, transcript[0].Sender)
}
