package pipeline

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Schedule runs the pipeline immediately and then every interval until ctx is
// cancelled. A zero interval runs once and returns that run's error. Failed
// scheduled runs are logged and the next tick starts fresh. afterRun, when
// set, is called after every run.
func (p *Pipeline) Schedule(ctx context.Context, interval time.Duration, clock clockwork.Clock, afterRun func(error)) error {
	_, err := p.Run(ctx)
	if afterRun != nil {
		afterRun(err)
	}
	if interval <= 0 {
		return err
	}

	p.logger.Info("scheduler started", "interval", interval)
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			_, err := p.Run(ctx)
			if afterRun != nil {
				afterRun(err)
			}
		}
	}
}
