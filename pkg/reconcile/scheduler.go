package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/0xmhha/lf-watcher/pkg/fsutil"
	"github.com/0xmhha/lf-watcher/pkg/logger"
)

// scheduler runs delayed tasks on their own goroutines. A task cannot be
// cancelled once scheduled; cancelling the context abandons every task
// still waiting.
type scheduler struct {
	log logger.Logger
	wg  sync.WaitGroup
}

// After runs fn after d unless ctx is done first. Panics in fn are logged.
func (s *scheduler) After(ctx context.Context, d time.Duration, name string, fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("delayed task panicked", "task", name, "panic", r)
			}
		}()

		if err := fsutil.Sleep(ctx, d); err != nil {
			s.log.Debug("delayed task abandoned", "task", name)
			return
		}
		fn(ctx)
	}()
}

// Wait blocks until every scheduled task has finished or been abandoned.
func (s *scheduler) Wait() {
	s.wg.Wait()
}
