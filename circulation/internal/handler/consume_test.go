package handler_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/handler"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
)

type session struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *session) Claims() map[string][]int32               { return nil }
func (s *session) MemberID() string                         { return "test" }
func (s *session) GenerationID() int32                      { return 1 }
func (s *session) MarkOffset(string, int32, int64, string)  {}
func (s *session) Commit()                                  {}
func (s *session) ResetOffset(string, int32, int64, string) {}
func (s *session) Context() context.Context                 { return s.ctx }
func (s *session) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type claim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *claim) Topic() string                            { return kafka.CopyAvailableTopic }
func (c *claim) Partition() int32                         { return 0 }
func (c *claim) InitialOffset() int64                     { return 0 }
func (c *claim) HighWaterMarkOffset() int64               { return 0 }
func (c *claim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func event(t *testing.T, offset int64, itemID string) *sarama.ConsumerMessage {
	t.Helper()
	data, err := json.Marshal(kafka.CopyAvailableEvent{ItemID: itemID, CopyID: itemID + "-1"})
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: kafka.CopyAvailableTopic, Offset: offset, Value: data}
}

func TestConsumer_ConsumeClaim(t *testing.T) {
	t.Parallel()
	var calls []string
	fn := func(_ context.Context, itemID, copyID string) (model.Reservation, error) {
		calls = append(calls, itemID+"/"+copyID)
		if itemID == "empty" {
			return model.Reservation{}, errs.ErrNotFound
		}
		return model.Reservation{ID: "r-" + itemID}, nil
	}

	cl := &claim{messages: make(chan *sarama.ConsumerMessage, 3)}
	cl.messages <- event(t, 1, "x")
	cl.messages <- event(t, 2, "empty")
	cl.messages <- &sarama.ConsumerMessage{Offset: 3, Value: []byte("{not json")}
	close(cl.messages)

	sess := &session{ctx: context.Background()}
	consumer := handler.NewConsumer(fn, zap.NewNop())
	require.NoError(t, consumer.Setup(sess))
	require.NoError(t, consumer.ConsumeClaim(sess, cl))
	require.NoError(t, consumer.Cleanup(sess))

	require.Equal(t, []string{"x/x-1", "empty/empty-1"}, calls)
	require.Equal(t, []int64{1, 2, 3}, sess.marked)
}

func TestConsumer_RetriesTransientFailure(t *testing.T) {
	t.Parallel()
	failures := 2
	var calls int
	fn := func(context.Context, string, string) (model.Reservation, error) {
		calls++
		if calls <= failures {
			return model.Reservation{}, errors.New("db down")
		}
		return model.Reservation{ID: "r"}, nil
	}

	cl := &claim{messages: make(chan *sarama.ConsumerMessage, 1)}
	cl.messages <- event(t, 7, "x")
	close(cl.messages)

	sess := &session{ctx: context.Background()}
	consumer := handler.NewConsumer(fn, zap.NewNop(), handler.WithRetryBackoff(3, time.Millisecond))
	require.NoError(t, consumer.ConsumeClaim(sess, cl))
	require.Equal(t, 3, calls)
	require.Equal(t, []int64{7}, sess.marked)
}

func TestConsumer_FailureStopsBeforeLaterOffsets(t *testing.T) {
	t.Parallel()
	var calls []string
	fn := func(_ context.Context, itemID, _ string) (model.Reservation, error) {
		calls = append(calls, itemID)
		if itemID == "broken" {
			return model.Reservation{}, errors.New("db down")
		}
		return model.Reservation{ID: "r-" + itemID}, nil
	}

	cl := &claim{messages: make(chan *sarama.ConsumerMessage, 3)}
	cl.messages <- event(t, 1, "x")
	cl.messages <- event(t, 2, "broken")
	cl.messages <- event(t, 3, "y")
	close(cl.messages)

	sess := &session{ctx: context.Background()}
	consumer := handler.NewConsumer(fn, zap.NewNop(), handler.WithRetryBackoff(2, time.Millisecond))
	err := consumer.ConsumeClaim(sess, cl)
	require.Error(t, err)

	require.Equal(t, []string{"x", "broken", "broken"}, calls)
	require.Equal(t, []int64{1}, sess.marked)
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	consumer := handler.NewConsumer(func(context.Context, string, string) (model.Reservation, error) {
		return model.Reservation{}, nil
	}, zap.NewNop())
	require.NoError(t, consumer.ConsumeClaim(&session{ctx: ctx}, &claim{messages: make(chan *sarama.ConsumerMessage)}))
}
