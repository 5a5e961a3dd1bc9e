// Package ingest runs the intake half of the pipeline: fetch articles from
// all sources, deduplicate by title, classify, apply the severity gate,
// persist qualifying events, hand them to the analysis task queue and fan out
// notification queue entries.
package ingest

import (
	"context"
	"errors"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/abhonsle123/ripplefx/internal/model"
	rmq "github.com/abhonsle123/ripplefx/internal/rabbitmq/queue"
	eventrepo "github.com/abhonsle123/ripplefx/internal/repository/event"
	"github.com/abhonsle123/ripplefx/internal/source"
)

type eventRepository interface {
	TitleExists(ctx context.Context, title string) (bool, error)
	CreateEvent(ctx context.Context, article model.Article, classification model.ClassificationResult, isPublic bool) (model.Event, error)
}

type queueRepository interface {
	Enqueue(ctx context.Context, eventID uuid.UUID, profileIDs []uuid.UUID) error
}

type profileRepository interface {
	ListNotifiableIDs(ctx context.Context) ([]uuid.UUID, error)
}

type articleClassifier interface {
	Classify(ctx context.Context, title, description string) model.ClassificationResult
}

type analysisPublisher interface {
	Publish(task rmq.AnalysisTask, strategy retry.Strategy) error
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// Service orchestrates one ingestion run.
type Service struct {
	sources     []source.Adapter
	events      eventRepository
	queue       queueRepository
	profiles    profileRepository
	classifier  articleClassifier
	analysis    analysisPublisher
	cache       cache
	strategy    retry.Strategy
	minSeverity model.Severity
	workers     int
}

// NewService wires the ingestion pipeline.
func NewService(
	sources []source.Adapter,
	events eventRepository,
	queue queueRepository,
	profiles profileRepository,
	classifier articleClassifier,
	analysis analysisPublisher,
	cache cache,
	strategy retry.Strategy,
	minSeverity model.Severity,
	workers int,
) *Service {
	if workers < 1 {
		workers = 1
	}

	return &Service{
		sources:     sources,
		events:      events,
		queue:       queue,
		profiles:    profiles,
		classifier:  classifier,
		analysis:    analysis,
		cache:       cache,
		strategy:    strategy,
		minSeverity: minSeverity,
		workers:     workers,
	}
}

// Run executes a full ingestion pass and reports what happened. Individual
// article failures never abort the run.
func (s *Service) Run(ctx context.Context) model.IngestReport {
	articles := source.FetchAll(ctx, s.sources)

	recipients, err := s.profiles.ListNotifiableIDs(ctx)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to list notifiable profiles, events will not be enqueued")
		recipients = nil
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = model.IngestReport{Fetched: len(articles)}
	)

	jobs := make(chan model.Article)

	wg.Add(s.workers)
	for i := 0; i < s.workers; i++ {
		go func() {
			defer wg.Done()

			for article := range jobs {
				outcome := s.processArticle(ctx, article, recipients)

				mu.Lock()
				switch outcome {
				case outcomeDuplicate:
					report.Duplicates++
				case outcomeRejected:
					report.Rejected++
				case outcomeCreated:
					report.Created++
				case outcomeFailed:
					report.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, article := range articles {
		jobs <- article
	}
	close(jobs)
	wg.Wait()

	zlog.Logger.Info().
		Int("fetched", report.Fetched).
		Int("duplicates", report.Duplicates).
		Int("rejected", report.Rejected).
		Int("created", report.Created).
		Int("failed", report.Failed).
		Msg("ingestion run finished")

	return report
}

type outcome int

const (
	outcomeDuplicate outcome = iota
	outcomeRejected
	outcomeCreated
	outcomeFailed
)

func (s *Service) processArticle(ctx context.Context, article model.Article, recipients []uuid.UUID) outcome {
	dup, err := s.isDuplicate(ctx, article.Title)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("title", article.Title).Msg("failed to check for duplicate")
		return outcomeFailed
	}
	if dup {
		return outcomeDuplicate
	}

	classification := s.classifier.Classify(ctx, article.Title, article.Description)

	// The severity gate is a hard policy boundary: rejected articles are
	// discarded entirely and will be re-fetched on the next run.
	if !classification.Severity.AtLeast(s.minSeverity) {
		return outcomeRejected
	}

	event, err := s.events.CreateEvent(ctx, article, classification, true)
	if err != nil {
		if errors.Is(err, eventrepo.ErrDuplicateTitle) {
			// Lost the race to a concurrent insert; the unique index on
			// title kept the store consistent.
			return outcomeDuplicate
		}

		zlog.Logger.Error().Err(err).Str("title", article.Title).Msg("failed to create event")
		return outcomeFailed
	}

	if event.Severity.AtLeast(model.SeverityHigh) {
		if err := s.analysis.Publish(rmq.AnalysisTask{EventID: event.ID}, s.strategy); err != nil {
			// Enrichment is best-effort; the event is durably stored.
			zlog.Logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to publish analysis task")
		}
	}

	if err := s.queue.Enqueue(ctx, event.ID, recipients); err != nil {
		zlog.Logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to enqueue notifications")
	}

	if err := s.cache.SetWithRetry(ctx, s.strategy, titleKey(article.Title), "1"); err != nil {
		zlog.Logger.Warn().Err(err).Str("title", article.Title).Msg("failed to cache event title")
	}

	return outcomeCreated
}

// isDuplicate checks the Redis title cache first, then the event store.
// Exact, case-sensitive title match is the documented dedup baseline.
func (s *Service) isDuplicate(ctx context.Context, title string) (bool, error) {
	_, err := s.cache.GetWithRetry(ctx, s.strategy, titleKey(title))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, redis.Nil) {
		zlog.Logger.Warn().Err(err).Str("title", title).Msg("title cache lookup failed, falling back to store")
	}

	exists, err := s.events.TitleExists(ctx, title)
	if err != nil {
		return false, err
	}

	if exists {
		if cacheErr := s.cache.SetWithRetry(ctx, s.strategy, titleKey(title), "1"); cacheErr != nil {
			zlog.Logger.Warn().Err(cacheErr).Str("title", title).Msg("failed to cache event title")
		}
	}

	return exists, nil
}

func titleKey(title string) string {
	return "event:title:" + title
}
