package telemetry

import (
	"context"
	"encoding/json"

	"github.com/Skyrin/go-safar/e"
	glkafka "github.com/Skyrin/go-safar/kafka"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const (
	ECode070101 = e.Code0701 + "01"
	ECode070102 = e.Code0701 + "02"
	ECode070103 = e.Code0701 + "03"
)

// MessageWriter the part of *kafka.Writer used by the reporter
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaReporter publishes events as JSON messages keyed by event id
type KafkaReporter struct {
	w MessageWriter
}

// NewKafkaReporter returns a reporter writing to w. The writer should be
// asynchronous (see NewKafkaTopicReporter), so Report does not wait on brokers
func NewKafkaReporter(w MessageWriter) *KafkaReporter {
	return &KafkaReporter{w: w}
}

// NewKafkaTopicReporter returns a reporter using an asynchronous writer for the
// topic on the connection. Delivery failures are logged
func NewKafkaTopicReporter(c *glkafka.Connection, topic string) (kr *KafkaReporter, w *kafka.Writer) {
	w = c.NewWriter(topic)
	w.Async = true
	w.Completion = func(mList []kafka.Message, err error) {
		if err != nil {
			log.Warn().Err(err).Msgf("[%s]failed to deliver %d telemetry event(s)",
				ECode070101, len(mList))
		}
	}

	return NewKafkaReporter(w), w
}

// Report implements Reporter
func (k *KafkaReporter) Report(ev Event) {
	b, err := json.Marshal(ev)
	if err != nil {
		log.Warn().Err(err).Msgf("[%s]failed to encode telemetry event", ECode070102)
		return
	}

	m := kafka.Message{
		Key:   []byte(ev.ID),
		Value: b,
	}
	if err := k.w.WriteMessages(context.Background(), m); err != nil {
		log.Warn().Err(err).Msgf("[%s]failed to write telemetry event", ECode070103)
	}
}
