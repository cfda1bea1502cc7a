package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Refresher calls RefreshDirty on a ticker.
type Refresher struct {
	Cache    *Cache
	Interval time.Duration
	Log      *logrus.Logger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewRefresher(c *Cache, interval time.Duration) *Refresher {
	return &Refresher{Cache: c, Interval: interval, Log: c.log}
}

// Start launches the loop. A zero interval disables it.
func (r *Refresher) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Interval <= 0 {
		r.Log.Info("Cache refresher disabled")
		return
	}
	if r.ticker != nil {
		return
	}
	r.ticker = time.NewTicker(r.Interval)
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go r.run(r.ticker, r.stop)

	r.Log.WithField("interval", r.Interval.String()).Info("Cache refresher started")
}

// Stop ends the loop and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.wg.Wait()
	r.ticker = nil
	r.Log.Info("Cache refresher stopped")
}

func (r *Refresher) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer r.wg.Done()
	for {
		select {
		case <-ticker.C:
			r.RunNow(context.Background())
		case <-stop:
			return
		}
	}
}

// RunNow refreshes immediately.
func (r *Refresher) RunNow(ctx context.Context) {
	dirty := len(r.Cache.DirtyDates())
	if dirty == 0 {
		return
	}
	if err := r.Cache.RefreshDirty(ctx); err != nil {
		r.Log.WithError(err).Error("Cache refresh failed")
		return
	}
	r.Log.WithField("dates", dirty).Debug("Cache refreshed")
}
