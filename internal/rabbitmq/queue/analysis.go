// Package queue declares the RabbitMQ topology for impact-analysis tasks.
// Ingestion publishes one task per HIGH/CRITICAL event; the analysis worker
// consumes them. The event is durably stored before the task is published, so
// a lost task only costs enrichment, never the event itself.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

const (
	ExchangeName   = "analysis-exchange"
	MainQueueName  = "analysis-queue"
	RetryQueueName = "analysis-retry"
	DLQName        = "analysis-dlq"
	RoutingKey     = "analysis"
)

// AnalysisTask asks the analysis worker to enrich one event.
type AnalysisTask struct {
	EventID uuid.UUID `json:"event_id"`
}

// AnalysisQueue wraps the publisher and consumer for analysis tasks.
type AnalysisQueue struct {
	Publisher *rabbitmq.Publisher
	Consumer  *rabbitmq.Consumer
}

// NewAnalysisQueue declares the exchange, main queue, retry queue and DLQ,
// and binds them together.
func NewAnalysisQueue(ch *rabbitmq.Channel) (*AnalysisQueue, error) {
	exchange := rabbitmq.NewExchange(ExchangeName, "direct")
	if err := exchange.BindToChannel(ch); err != nil {
		return nil, fmt.Errorf("failed to bind to exchange: %w", err)
	}

	qm := rabbitmq.NewQueueManager(ch)

	_, err := qm.DeclareQueue(DLQName, rabbitmq.QueueConfig{Durable: true})
	if err != nil {
		return nil, fmt.Errorf("failed to declare DLQ queue: %w", err)
	}

	retryArgs := map[string]interface{}{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": MainQueueName,
		"x-message-ttl":             int32(5000),
	}

	_, err = qm.DeclareQueue(RetryQueueName, rabbitmq.QueueConfig{
		Durable: true,
		Args:    retryArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare retry queue: %w", err)
	}

	mainArgs := map[string]interface{}{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": DLQName,
	}

	mainQ, err := qm.DeclareQueue(MainQueueName, rabbitmq.QueueConfig{
		Durable: true,
		Args:    mainArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare main queue: %w", err)
	}

	if err := ch.QueueBind(mainQ.Name, RoutingKey, exchange.Name(), false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind the exchange to the main queue: %w", err)
	}

	pub := rabbitmq.NewPublisher(ch, exchange.Name())
	cons := rabbitmq.NewConsumer(ch, rabbitmq.NewConsumerConfig(mainQ.Name))

	return &AnalysisQueue{Publisher: pub, Consumer: cons}, nil
}

// Publish enqueues one analysis task.
func (q *AnalysisQueue) Publish(task AnalysisTask, strategy retry.Strategy) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	return q.Publisher.PublishWithRetry(body, RoutingKey, "application/json", strategy)
}

// Consume forwards decoded analysis tasks into out until the consumer stops.
func (q *AnalysisQueue) Consume(out chan<- AnalysisTask, strategy retry.Strategy) error {
	msgChan := make(chan []byte)

	go func() {
		for m := range msgChan {
			var task AnalysisTask
			if err := json.Unmarshal(m, &task); err != nil {
				zlog.Logger.Error().Err(err).Msg("failed to unmarshal analysis task")
				continue
			}

			out <- task
		}
	}()

	return q.Consumer.ConsumeWithRetry(msgChan, strategy)
}
