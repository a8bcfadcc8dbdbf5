package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/salon-booking/pkg/logging"
)

// Refresher reloads the store on a fixed interval.
type Refresher struct {
	store  *Store
	logger *logging.Logger

	tick <-chan time.Time
	stop func()
}

type RefresherConfig struct {
	Store    *Store
	Interval time.Duration
	Logger   *logging.Logger

	Tick <-chan time.Time
	Stop func()
}

func NewRefresher(cfg RefresherConfig) (*Refresher, error) {
	if cfg.Store == nil {
		return nil, errors.New("snapshot: refresher requires store")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	tick := cfg.Tick
	stop := cfg.Stop
	if tick == nil {
		interval := cfg.Interval
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		ticker := time.NewTicker(interval)
		tick = ticker.C
		stop = ticker.Stop
	}

	return &Refresher{
		store:  cfg.Store,
		logger: logger,
		tick:   tick,
		stop:   stop,
	}, nil
}

// Start refreshes immediately and then on every tick until ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	if r == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if r.stop != nil {
			r.stop()
		}
	}()

	_ = r.RefreshOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.tick:
			_ = r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce runs a single refresh. A superseded refresh is not an error.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	if r == nil || r.store == nil {
		return errors.New("snapshot: refresher not initialized")
	}
	_, err := r.store.Refresh(ctx)
	if errors.Is(err, ErrSuperseded) {
		return nil
	}
	if err != nil && ctx.Err() == nil {
		r.logger.Error("snapshot: scheduled refresh failed", "error", err)
	}
	return err
}
