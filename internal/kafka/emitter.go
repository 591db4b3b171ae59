package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher is the part of Producer the Emitter needs.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafka.Header)
}

// Emitter wraps payloads in a versioned market.Envelope and publishes them
// keyed by the aggregate id. Failures are logged, never returned.
type Emitter struct {
	P       Publisher
	Service string
	Log     logrus.FieldLogger
}

func (e *Emitter) Emit(ctx context.Context, topic, eventType, aggregateID string, payload any) {
	env, err := NewEnvelope(e.Service, eventType, aggregateID, middleware.GetReqID(ctx), payload)
	if err != nil {
		e.Log.WithError(err).WithField("event_type", eventType).Error("build event")
		return
	}
	value, err := json.Marshal(env)
	if err != nil {
		e.Log.WithError(err).WithField("event_type", eventType).Error("encode event")
		return
	}
	e.P.Publish(topic, market.PartitionKey(aggregateID), value,
		kafka.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(market.EnvelopeVersion))},
	)
}

func NewEnvelope(producer, eventType, aggregateID, traceID string, payload any) (market.Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return market.Envelope{}, err
	}
	return market.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  market.EnvelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: aggregateID,
		Payload:       raw,
	}, nil
}
