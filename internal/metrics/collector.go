package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// StatsSource provides functions to retrieve current counts for the
// business gauges. Nil fields are skipped.
type StatsSource struct {
	UserCount     func(ctx context.Context) (int, error)
	ActiveBans    func(ctx context.Context) (int, error)
	LowScoreUsers func(ctx context.Context) (int, error)
}

// StartCollector launches a goroutine that periodically updates the
// business gauges. It runs every interval until the context is
// cancelled.
func StartCollector(ctx context.Context, src StatsSource, interval time.Duration) {
	collect(ctx, src)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect(ctx, src)
			}
		}
	}()

	log.Info().Dur("interval", interval).Msg("Metrics collector started")
}

func collect(ctx context.Context, src StatsSource) {
	g, ctx := errgroup.WithContext(ctx)

	if src.UserCount != nil {
		g.Go(func() error {
			n, err := src.UserCount(ctx)
			if err == nil {
				UsersTotal.Set(float64(n))
			}
			return err
		})
	}
	if src.ActiveBans != nil {
		g.Go(func() error {
			n, err := src.ActiveBans(ctx)
			if err == nil {
				ActiveBansTotal.Set(float64(n))
			}
			return err
		})
	}
	if src.LowScoreUsers != nil {
		g.Go(func() error {
			n, err := src.LowScoreUsers(ctx)
			if err == nil {
				LowScoreUsersTotal.Set(float64(n))
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("Metrics collection failed")
	}
}
