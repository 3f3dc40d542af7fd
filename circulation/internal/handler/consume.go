package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/internal/errs"
	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
	"github.com/Astemirdum/library-circulation/pkg/retry"
)

type fulfillNext func(ctx context.Context, itemID, copyID string) (model.Reservation, error)

// Consumer hands every copy-available event to the head of the item's reservation queue.
type Consumer struct {
	fulfillNextHandler fulfillNext
	log                *zap.Logger

	attempts  int
	baseDelay time.Duration
}

type ConsumerOption func(*Consumer)

// WithRetryBackoff sets how often a failing event is retried before the claim gives up.
func WithRetryBackoff(attempts int, baseDelay time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.attempts = attempts
		c.baseDelay = baseDelay
	}
}

func NewConsumer(fn fulfillNext, log *zap.Logger, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		fulfillNextHandler: fn,
		log:                log.Named("consumer"),
		attempts:           5,
		baseDelay:          200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			err := retry.Do(session.Context(), func(ctx context.Context) error {
				return consumer.handle(ctx, message)
			},
				retry.WithMaxAttempts(consumer.attempts),
				retry.WithBaseDelay(consumer.baseDelay),
				retry.WithRetryFunc(func(error) bool { return true }),
			)
			if err != nil {
				// Ending the claim ends the session before a later offset is marked,
				// so the group resumes from this message.
				consumer.log.Error("consumer.fulfillNext",
					zap.Int64("offset", message.Offset), zap.Error(err))
				return errors.Wrapf(err, "copy-available offset %d", message.Offset)
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

func (consumer *Consumer) handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	var ev kafka.CopyAvailableEvent
	if err := json.Unmarshal(message.Value, &ev); err != nil {
		consumer.log.Error("bad copy-available event", zap.ByteString("value", message.Value), zap.Error(err))
		return nil
	}
	res, err := consumer.fulfillNextHandler(ctx, ev.ItemID, ev.CopyID)
	switch {
	case err == nil:
		consumer.log.Debug("reservation fulfilled",
			zap.String("reservation", res.ID), zap.String("item", ev.ItemID), zap.Time("timestamp", message.Timestamp))
		return nil
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrIneligible):
		consumer.log.Debug("nothing to fulfill", zap.String("item", ev.ItemID), zap.Error(err))
		return nil
	default:
		return err
	}
}
