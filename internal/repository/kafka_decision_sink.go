package repository

import (
	"context"

	"GridCast/internal/domain/models"
	pkgkafka "GridCast/pkg/kafka"
)

// KafkaDecisionSink publishes per-run candidate metrics and the promotion
// decision to a Kafka topic for downstream telemetry. It is purely an
// observer: selection correctness never depends on it.
type KafkaDecisionSink struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaDecisionSink(producer *pkgkafka.Producer, topic string) *KafkaDecisionSink {
	return &KafkaDecisionSink{producer: producer, topic: topic}
}

type decisionEvent struct {
	RunID            string                    `json:"run_id"`
	Promoted         bool                      `json:"promoted"`
	BestID           string                    `json:"best_id"`
	BestMetrics      map[string]float64        `json:"best_metrics,omitempty"`
	BaselineSource   string                    `json:"baseline_source"`
	BaselineMetric   float64                   `json:"baseline_metric"`
	BaselineDegraded bool                      `json:"baseline_degraded"`
	Candidates       []models.CandidateOutcome `json:"candidates"`
}

func (s *KafkaDecisionSink) Publish(ctx context.Context, run models.RunRecord) error {
	ev := decisionEvent{
		RunID:            run.RunID,
		Promoted:         run.Promoted != nil,
		BestID:           run.BestID,
		BestMetrics:      run.BestMetrics,
		BaselineSource:   run.BaselineSource,
		BaselineMetric:   run.BaselineMetric,
		BaselineDegraded: run.BaselineDegraded,
		Candidates:       run.Candidates,
	}
	return s.producer.Publish(ctx, s.topic, []byte(run.RunID), ev)
}

func (s *KafkaDecisionSink) Close() error {
	return s.producer.Close()
}

// NoopDecisionSink discards every event. Used when telemetry is disabled.
type NoopDecisionSink struct{}

func (NoopDecisionSink) Publish(ctx context.Context, run models.RunRecord) error { return nil }

func (NoopDecisionSink) Close() error { return nil }
