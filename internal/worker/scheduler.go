// Package worker hosts the background loops: the interval scheduler that
// triggers ingestion and dispatch runs, and the analysis task consumer.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/abhonsle123/ripplefx/internal/model"
	"github.com/abhonsle123/ripplefx/internal/service/dispatch"
)

type ingestRunner interface {
	Run(ctx context.Context) model.IngestReport
}

type dispatchRunner interface {
	Drain(ctx context.Context) (model.DispatchReport, error)
}

// Scheduler triggers pipeline runs on fixed intervals. Runs are independent
// invocations: an ingestion tick and a dispatch tick never block each other.
type Scheduler struct {
	ingest           ingestRunner
	dispatch         dispatchRunner
	ingestInterval   time.Duration
	dispatchInterval time.Duration
}

// NewScheduler creates a scheduler for both run types.
func NewScheduler(ingest ingestRunner, dispatch dispatchRunner, ingestInterval, dispatchInterval time.Duration) *Scheduler {
	return &Scheduler{
		ingest:           ingest,
		dispatch:         dispatch,
		ingestInterval:   ingestInterval,
		dispatchInterval: dispatchInterval,
	}
}

// Run blocks until ctx is cancelled, firing runs on their tickers.
func (s *Scheduler) Run(ctx context.Context) {
	ingestTicker := time.NewTicker(s.ingestInterval)
	defer ingestTicker.Stop()

	dispatchTicker := time.NewTicker(s.dispatchInterval)
	defer dispatchTicker.Stop()

	zlog.Logger.Info().
		Dur("ingest_interval", s.ingestInterval).
		Dur("dispatch_interval", s.dispatchInterval).
		Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("scheduler stopped")
			return
		case <-ingestTicker.C:
			s.ingest.Run(ctx)
		case <-dispatchTicker.C:
			if _, err := s.dispatch.Drain(ctx); err != nil {
				if errors.Is(err, dispatch.ErrDrainInProgress) {
					zlog.Logger.Info().Msg("dispatch run already in progress, skipping tick")
					continue
				}

				zlog.Logger.Error().Err(err).Msg("dispatch run failed")
			}
		}
	}
}
