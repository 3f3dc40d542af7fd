package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/circulation/internal/notify"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
)

func TestKafka_Notify(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, nil)
	n := model.Notification{
		Type:      model.NotifyCheckout,
		MemberID:  "m1",
		SubjectID: "loan-1",
		Message:   "checked out",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != kafka.NotificationTopic {
			return errors.New("wrong topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "m1" {
			return errors.New("wrong key " + string(key))
		}
		return nil
	})
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got model.Notification
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Type != model.NotifyCheckout || got.SubjectID != "loan-1" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	k := notify.NewKafka(producer, zap.NewNop())
	k.Notify(context.Background(), n)
	k.Notify(context.Background(), n)
	require.NoError(t, k.Close())
}

func TestKafka_CopyAvailable(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev kafka.CopyAvailableEvent
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.ItemID != "item" || ev.CopyID != "c1" {
			return errors.New("unexpected event")
		}
		return nil
	})

	k := notify.NewKafka(producer, zap.NewNop())
	k.CopyAvailable(context.Background(), "item", "c1")
	require.NoError(t, k.Close())
}

// Send failures are swallowed; once the breaker opens further messages never reach the producer.
func TestKafka_BrokerDown(t *testing.T) {
	t.Parallel()
	producer := mocks.NewSyncProducer(t, nil)
	for i := 0; i < 5; i++ {
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	}

	k := notify.NewKafka(producer, zap.NewNop())
	for i := 0; i < 8; i++ {
		k.Notify(context.Background(), model.Notification{Type: model.NotifyOverdue, MemberID: "m"})
	}
	require.NoError(t, k.Close())
}

func TestLog(t *testing.T) {
	t.Parallel()
	l := notify.NewLog(zap.NewNop())
	l.Notify(context.Background(), model.Notification{Type: model.NotifyDueSoon})
	l.CopyAvailable(context.Background(), "item", "c")
}
