package views

import (
	"context"
	"errors"
	"strings"
	"sync"

	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/internal/session"
	"anoa.com/isfportal/pkg/logger"
	"anoa.com/isfportal/pkg/platform"
)

type Subscription interface {
	Unsubscribe()
}

// ChangeFeed delivers row changes of one table.
type ChangeFeed interface {
	Subscribe(ctx context.Context, table string, fn func(platform.ChangeEvent)) (Subscription, error)
}

type platformFeed struct {
	client *platform.Client
}

func NewPlatformFeed(client *platform.Client) ChangeFeed {
	return &platformFeed{client: client}
}

func (f *platformFeed) Subscribe(ctx context.Context, table string, fn func(platform.ChangeEvent)) (Subscription, error) {
	sub, err := f.client.Subscribe(ctx, table, fn)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Forum keeps the thread list current by re-reading it on every change
// notification for the threads table.
type Forum struct {
	Threads *View[entity.Thread]
	feed    ChangeFeed

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	sub    Subscription
	wg     sync.WaitGroup
}

func NewForum(r Reader, feed ChangeFeed) *Forum {
	return &Forum{
		Threads: NewThreadsView(r),
		feed:    feed,
	}
}

// Activate marks the forum as shown. Like View.Activate it belongs on the
// goroutine that calls Unmount; Connect does the blocking work.
func (f *Forum) Activate(ctx context.Context) {
	f.mu.Lock()
	if f.cancel == nil {
		f.ctx, f.cancel = context.WithCancel(ctx)
	}
	f.mu.Unlock()
	f.Threads.Activate()
}

// Connect subscribes before the first read so no change is missed. A
// failed subscription leaves a static list and is retried by the next
// Connect. After Unmount it does nothing and returns ErrNotMounted.
func (f *Forum) Connect() error {
	f.mu.Lock()
	ctx, subscribed := f.ctx, f.sub != nil
	f.mu.Unlock()
	if ctx == nil {
		return ErrNotMounted
	}

	if !subscribed {
		sub, err := f.feed.Subscribe(ctx, ThreadsPolicy.Table, f.handleChange)
		if err != nil {
			logger.Warn().Err(err).Msg("thread change feed unavailable")
		} else {
			f.mu.Lock()
			keep := f.ctx == ctx && f.sub == nil
			if keep {
				f.sub = sub
			}
			f.mu.Unlock()
			if !keep {
				sub.Unsubscribe()
			}
		}
	}

	return f.Threads.Refresh(ctx)
}

func (f *Forum) Mount(ctx context.Context) error {
	f.Activate(ctx)
	return f.Connect()
}

func (f *Forum) handleChange(e platform.ChangeEvent) {
	switch e.Type {
	case entity.ChangeInsert, entity.ChangeUpdate, entity.ChangeDelete:
	default:
		return
	}

	f.mu.Lock()
	ctx := f.ctx
	if ctx == nil || ctx.Err() != nil {
		f.mu.Unlock()
		return
	}
	f.wg.Add(1)
	f.mu.Unlock()

	go func() {
		defer f.wg.Done()
		err := f.Threads.Refresh(ctx)
		if err != nil && !errors.Is(err, ErrStale) && !errors.Is(err, ErrNotMounted) {
			logger.Debug().Err(err).Msg("thread refetch failed")
		}
	}()
}

// Unmount releases the change feed and waits for refetches in flight.
func (f *Forum) Unmount() {
	f.mu.Lock()
	sub, cancel := f.sub, f.cancel
	f.sub, f.cancel, f.ctx = nil, nil, nil
	f.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	f.Threads.Unmount()
	f.wg.Wait()
}

// Welcome is the forum header for s.
func Welcome(s session.Session) string {
	if s.Identity == nil {
		return "Join the Conversation!"
	}
	first := strings.Fields(s.Identity.Name)
	if len(first) == 0 {
		return "Welcome!"
	}
	return "Welcome, " + first[0] + "!"
}
