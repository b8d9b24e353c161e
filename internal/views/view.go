// Package views loads and holds the data shown by each portal page.
package views

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"anoa.com/isfportal/pkg/logger"
)

type State int

const (
	Loading State = iota
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

type Snapshot[T any] struct {
	State State
	Items []T
	Err   error
	// EmptyMessage is shown instead of rows when the view has none.
	EmptyMessage string
}

// Empty reports whether the view finished loading with nothing to show.
// A failed read counts as empty.
func (s Snapshot[T]) Empty() bool {
	return s.State != Loading && len(s.Items) == 0
}

type Loader[T any] func(ctx context.Context) ([]T, error)

var (
	// ErrStale is returned by a read that a newer read or Unmount replaced.
	ErrStale      = errors.New("views: read superseded")
	ErrNotMounted = errors.New("views: view is not mounted")
)

// QueryError wraps a failed read.
type QueryError struct {
	View string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("load %s: %v", e.View, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// View runs one read per Mount/Refresh. Each read takes a generation and
// cancels the one before it; only the newest generation may store its
// result.
type View[T any] struct {
	name  string
	empty string
	load  Loader[T]

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	mounted  bool
	snap     Snapshot[T]
	onChange func()
}

func NewView[T any](name, emptyMessage string, load Loader[T]) *View[T] {
	return &View[T]{
		name:  name,
		empty: emptyMessage,
		load:  load,
		snap:  Snapshot[T]{State: Loading, EmptyMessage: emptyMessage},
	}
}

// OnChange registers fn to run after every stored result.
func (v *View[T]) OnChange(fn func()) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

// Activate marks the view as shown without reading. Call it from the
// goroutine that calls Unmount, then Refresh from anywhere; a Refresh
// that starts after Unmount returns ErrNotMounted.
func (v *View[T]) Activate() {
	v.mu.Lock()
	v.mounted = true
	v.mu.Unlock()
}

func (v *View[T]) Mount(ctx context.Context) error {
	v.Activate()
	return v.Refresh(ctx)
}

// Refresh blocks until the read finishes. Rows already shown stay visible
// while it runs.
func (v *View[T]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return ErrNotMounted
	}
	v.gen++
	gen := v.gen
	if v.cancel != nil {
		v.cancel()
	}
	readCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	if v.snap.State == Failed {
		v.snap.State = Loading
	}
	v.mu.Unlock()
	defer cancel()

	items, err := v.load(readCtx)

	v.mu.Lock()
	if gen != v.gen {
		v.mu.Unlock()
		return ErrStale
	}
	v.cancel = nil

	if err != nil {
		logger.Error().Err(err).Str("view", v.name).Msg("failed to load view")
		v.snap = Snapshot[T]{State: Failed, Err: err, EmptyMessage: v.empty}
		err = &QueryError{View: v.name, Err: err}
	} else {
		v.snap = Snapshot[T]{State: Ready, Items: items, EmptyMessage: v.empty}
	}
	fn := v.onChange
	v.mu.Unlock()

	if fn != nil {
		fn()
	}
	return err
}

// Unmount cancels the read in flight and discards any result it returns.
func (v *View[T]) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.mounted = false
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}

func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.snap
	s.Items = append([]T(nil), v.snap.Items...)
	return s
}
