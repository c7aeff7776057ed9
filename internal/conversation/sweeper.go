package conversation

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically removes an expired conversation even when nothing
// loads or saves it. It only deletes; it never touches in-flight requests.
type Sweeper struct {
	Store    *Store
	Interval time.Duration
	Log      logrus.FieldLogger
	// OnExpire, if set, is called after an expired conversation was removed.
	OnExpire func()
}

// Run sweeps every Interval until ctx is done.
func (w *Sweeper) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Sweeper) sweepOnce(ctx context.Context) {
	expired, err := w.Store.Sweep(ctx)
	if err != nil {
		w.logger().WithError(err).Warn("conversation sweep failed")
		return
	}
	if expired {
		w.logger().Info("expired conversation removed")
		if w.OnExpire != nil {
			w.OnExpire()
		}
	}
}

func (w *Sweeper) logger() logrus.FieldLogger {
	if w.Log == nil {
		return logrus.StandardLogger()
	}
	return w.Log
}
