package index

import (
	"context"
	"time"

	"github.com/sandevgo/recall/pkg/log"
)

// Worker periodically sweeps for unindexed content so messages written
// while the embedding server was busy still get indexed.
type Worker struct {
	service  *Service
	interval time.Duration
}

func NewWorker(service *Service, interval time.Duration) *Worker {
	return &Worker{
		service:  service,
		interval: interval,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx).With().Str("component", "index_worker").Logger()
	logger.Info().Dur("interval", w.interval).Msg("starting index worker")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down index worker")
			return nil
		case <-ticker.C:
			n, err := w.service.IndexAll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error().Err(err).Msg("index sweep failed")
				continue
			}
			if n > 0 {
				logger.Debug().Int("indexed", n).Msg("index sweep complete")
			}
		}
	}
}

func (w *Worker) Shutdown(ctx context.Context) error {
	return nil
}
