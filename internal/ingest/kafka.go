package ingest

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configures the optional reading consumer.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type kafkaReading struct {
	TenantID   string  `json:"tenant_id"`
	SensorID   string  `json:"sensor_id"`
	Value      float64 `json:"value"`
	RecordedAt string  `json:"recorded_at"`
}

// StartKafka consumes sensor readings from a Kafka topic. Messages are
// the single-reading JSON shape of the HTTP endpoint. Malformed
// messages are logged and skipped.
func StartKafka(ctx context.Context, cfg KafkaConfig, recorder Recorder, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}
	if !cfg.Enabled {
		logger.Printf("kafka ingest disabled")
		return
	}
	logger.Printf("kafka ingest enabled brokers=%v topic=%s group_id=%s", cfg.Brokers, cfg.Topic, cfg.GroupID)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Printf("kafka read error: %v", err)
				continue
			}
			var reading kafkaReading
			if err := json.Unmarshal(m.Value, &reading); err != nil {
				logger.Printf("kafka decode error: %v", err)
				continue
			}
			if reading.TenantID == "" || reading.SensorID == "" {
				continue
			}
			recordedAt, err := parseRecordedAt(reading.RecordedAt)
			if err != nil {
				logger.Printf("kafka timestamp error: %v", err)
				continue
			}
			recordCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if _, err := recorder.RecordReading(recordCtx, reading.TenantID, reading.SensorID, reading.Value, recordedAt, "kafka"); err != nil {
				logger.Printf("kafka record error: %v", err)
			}
			cancel()
		}
	}()
}
