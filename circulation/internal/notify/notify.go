package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	cb "github.com/Astemirdum/library-circulation/pkg/circuit_breaker"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
)

const (
	cbRecordLength     = 10
	cbTimeout          = 10 * time.Second
	cbPercentile       = 0.5
	cbRecoveryRequests = 3
)

// Kafka publishes notifications and copy-available events. Delivery is best effort:
// failures are logged and an open breaker drops messages until the broker recovers.
type Kafka struct {
	producer sarama.SyncProducer
	cb       cb.CircuitBreaker
	log      *zap.Logger
}

func NewKafka(producer sarama.SyncProducer, log *zap.Logger) *Kafka {
	return &Kafka{
		producer: producer,
		cb:       cb.New(cbRecordLength, cbTimeout, cbPercentile, cbRecoveryRequests),
		log:      log.Named("notify"),
	}
}

func (k *Kafka) Notify(_ context.Context, n model.Notification) {
	if err := k.send(kafka.NotificationTopic, n.MemberID, n); err != nil {
		k.log.Warn("notification dropped",
			zap.String("type", string(n.Type)), zap.String("member", n.MemberID), zap.Error(err))
	}
}

func (k *Kafka) CopyAvailable(_ context.Context, itemID, copyID string) {
	ev := kafka.CopyAvailableEvent{ItemID: itemID, CopyID: copyID, Timestamp: time.Now().UTC()}
	if err := k.send(kafka.CopyAvailableTopic, itemID, ev); err != nil {
		k.log.Warn("copy-available event dropped",
			zap.String("item", itemID), zap.String("copy", copyID), zap.Error(err))
	}
}

func (k *Kafka) send(topic, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	return k.cb.Call(func() error {
		_, _, err := k.producer.SendMessage(msg)
		return err
	})
}

func (k *Kafka) Close() error {
	return k.producer.Close()
}

// Log writes notifications to the log. Used when kafka is disabled.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log.Named("notify")}
}

func (l *Log) Notify(_ context.Context, n model.Notification) {
	l.log.Info("notification",
		zap.String("type", string(n.Type)),
		zap.String("member", n.MemberID),
		zap.String("subject", n.SubjectID),
		zap.String("message", n.Message))
}

func (l *Log) CopyAvailable(_ context.Context, itemID, copyID string) {
	l.log.Info("copy available", zap.String("item", itemID), zap.String("copy", copyID))
}
