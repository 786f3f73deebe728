package component

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/veesix-networks/osvswitch/pkg/logger"
)

// Base carries the lifecycle plumbing shared by components: a context that
// is cancelled on stop and a wait group for the goroutines started with Go.
type Base struct {
	name   string
	log    *slog.Logger
	Ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBase(name string) *Base {
	return &Base{
		name: name,
		log:  logger.Get(logger.Main).With("component", name),
	}
}

func (b *Base) Name() string {
	return b.name
}

func (b *Base) StartContext(parentCtx context.Context) {
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	b.Ctx, b.cancel = context.WithCancel(parentCtx)
}

// StopContext cancels Ctx and waits for every goroutine started with Go.
func (b *Base) StopContext() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
}

// Go runs fn in a tracked goroutine. A panic in fn is logged and ends only
// that goroutine.
func (b *Base) Go(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				b.log.Error("Component goroutine panicked", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
