package worker

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	rmq "github.com/abhonsle123/ripplefx/internal/rabbitmq/queue"
)

type analysisQueue interface {
	Consume(out chan<- rmq.AnalysisTask, strategy retry.Strategy) error
}

type analysisClient interface {
	Analyze(eventID uuid.UUID) (json.RawMessage, error)
}

type eventUpdater interface {
	SetImpactAnalysis(ctx context.Context, id uuid.UUID, analysis json.RawMessage) error
}

// AnalysisWorker consumes impact-analysis tasks and writes results back onto
// events. Enrichment is best-effort: any failure is logged and the task is
// dropped, the event stays untouched.
type AnalysisWorker struct {
	queue  analysisQueue
	client analysisClient
	events eventUpdater
}

// NewAnalysisWorker creates the worker.
func NewAnalysisWorker(q analysisQueue, c analysisClient, e eventUpdater) *AnalysisWorker {
	return &AnalysisWorker{
		queue:  q,
		client: c,
		events: e,
	}
}

// Run consumes tasks with workerCount goroutines until ctx is cancelled.
func (w *AnalysisWorker) Run(ctx context.Context, strategy retry.Strategy, workerCount int) {
	taskChan := make(chan rmq.AnalysisTask, workerCount*10)

	go func() {
		if err := w.queue.Consume(taskChan, strategy); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to consume analysis tasks")
		}
	}()

	for i := 0; i < workerCount; i++ {
		go func(id int) {
			zlog.Logger.Printf("analysis-worker-%d started", id)

			for {
				select {
				case <-ctx.Done():
					zlog.Logger.Printf("analysis-worker-%d shutting down", id)
					return
				case task, ok := <-taskChan:
					if !ok {
						zlog.Logger.Printf("analysis-worker-%d channel closed, shutting down", id)
						return
					}

					w.handleTask(ctx, task)
				}
			}
		}(i)
	}

	<-ctx.Done()
	zlog.Logger.Print("analysis worker stopped")
}

func (w *AnalysisWorker) handleTask(ctx context.Context, task rmq.AnalysisTask) {
	result, err := w.client.Analyze(task.EventID)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("event_id", task.EventID.String()).Msg("impact analysis failed")
		return
	}

	if err := w.events.SetImpactAnalysis(ctx, task.EventID, result); err != nil {
		zlog.Logger.Error().Err(err).Str("event_id", task.EventID.String()).Msg("failed to store impact analysis")
		return
	}

	zlog.Logger.Info().Str("event_id", task.EventID.String()).Msg("impact analysis stored")
}
