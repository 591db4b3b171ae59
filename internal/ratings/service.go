// Package ratings keeps per-product rating aggregates in Redis up to date
// from review events.
package ratings

import (
	"context"
	"fmt"

	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/market"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type TotalsStore interface {
	Totals(ctx context.Context, productID string) (count, sum int64, err error)
}

type AggregateStore interface {
	MarkProcessed(ctx context.Context, service, eventID string) (bool, error)
	Unmark(ctx context.Context, service, eventID string) error
	SetRatingAggregate(ctx context.Context, productID string, count, sum int64) (bool, error)
}

type Service struct {
	Reviews     TotalsStore
	Cache       AggregateStore
	ServiceName string
	Log         logrus.FieldLogger
}

// HandleReviewCreated is installed as the consumer handler. The aggregate
// is recomputed from Postgres and the store keeps the snapshot with the
// highest count, so replays and racing refreshes converge.
func (s *Service) HandleReviewCreated(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		s.Log.WithError(err).WithField("offset", m.Offset).Warn("skipping undecodable message")
		return nil
	}
	if env.EventType != market.EventReviewCreated {
		return nil
	}
	p, err := kafkax.DecodePayload[market.ReviewCreatedPayload](env.Payload)
	if err != nil {
		s.Log.WithError(err).WithField("event_id", env.EventID).Warn("skipping bad payload")
		return nil
	}

	fresh, err := s.Cache.MarkProcessed(ctx, s.ServiceName, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !fresh {
		return nil
	}

	if err := s.refresh(ctx, p.ProductID); err != nil {
		// release the claim so the redelivery is not skipped
		if uerr := s.Cache.Unmark(ctx, s.ServiceName, env.EventID); uerr != nil {
			s.Log.WithError(uerr).WithField("event_id", env.EventID).Error("release dedup claim")
		}
		return err
	}

	s.Log.WithFields(logrus.Fields{
		"event_id":   env.EventID,
		"product_id": p.ProductID,
		"trace_id":   env.TraceID,
	}).Debug("rating aggregate refreshed")
	return nil
}

func (s *Service) refresh(ctx context.Context, productID string) error {
	count, sum, err := s.Reviews.Totals(ctx, productID)
	if err != nil {
		return fmt.Errorf("totals %s: %w", productID, err)
	}
	stored, err := s.Cache.SetRatingAggregate(ctx, productID, count, sum)
	if err != nil {
		return fmt.Errorf("store aggregate %s: %w", productID, err)
	}
	if !stored {
		s.Log.WithFields(logrus.Fields{"product_id": productID, "count": count}).Debug("stale aggregate dropped")
	}
	return nil
}
