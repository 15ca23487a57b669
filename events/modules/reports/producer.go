package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/siriusuniversity/report-backend/internal/config"
	transport "github.com/siriusuniversity/report-backend/internal/kafka"
	"github.com/siriusuniversity/report-backend/model"
)

// MessageWriter is the part of kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// BatchTimeout caps how long a single event waits for a batch to fill.
// Each submit publishes one event, so batching only adds latency.
const BatchTimeout = 10 * time.Millisecond

// ReportProducer sends report events to Kafka
type ReportProducer struct {
	Writer MessageWriter
	now    func() time.Time
}

// NewReportProducer initializes a Kafka writer for report events
func NewReportProducer(cfg config.KafkaConfig) *ReportProducer {
	return NewReportProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: BatchTimeout,
		Transport:    transport.NewTransport(cfg),
	})
}

// NewReportProducerWithWriter wraps an existing writer
func NewReportProducerWithWriter(w MessageWriter) *ReportProducer {
	return &ReportProducer{Writer: w, now: time.Now}
}

// PublishReportSubmitted sends the event to the Kafka topic, keyed by username
func (p *ReportProducer) PublishReportSubmitted(ctx context.Context, r model.Report) error {
	event := ReportSubmittedEvent{
		EventType:     EventReportSubmitted,
		EventID:       uuid.New().String(),
		EventTime:     p.now().UTC(),
		SchemaVersion: "v1",
		ReportID:      r.Key,
		Username:      r.Username,
		IssueKey:      r.IssueKey,
		AttachmentID:  r.AttachmentID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(r.Username),
		Value: payload,
	})
}

// Close cleans up the Kafka writer
func (p *ReportProducer) Close() error {
	return p.Writer.Close()
}
