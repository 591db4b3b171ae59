package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Producer hands messages to an async kafka.Writer through a buffered
// inbox. Publish never blocks: when the inbox is full the message is
// dropped and logged.
type Producer struct {
	w     *kafka.Writer
	inbox chan kafka.Message
	done  chan struct{}
	log   logrus.FieldLogger

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, buf int, log logrus.FieldLogger) *Producer {
	p := &Producer{
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
		log:   log,
	}
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion:   p.completed,
	}
	return p
}

func (p *Producer) completed(msgs []kafka.Message, err error) {
	for _, m := range msgs {
		metrics.EventPublished(m.Topic, err == nil)
	}
	if err != nil {
		p.log.WithError(err).WithField("messages", len(msgs)).Error("kafka write failed")
	}
}

// Start runs the delivery loop until Close is called and the inbox drains.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		for m := range p.inbox {
			if err := p.w.WriteMessages(ctx, m); err != nil {
				p.log.WithError(err).WithField("topic", m.Topic).Error("kafka enqueue failed")
			}
		}
		if err := p.w.Close(); err != nil {
			p.log.WithError(err).Warn("kafka writer close")
		}
	}()
}

func (p *Producer) Publish(topic string, key, value []byte, headers ...kafka.Header) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	m := kafka.Message{Topic: topic, Key: key, Value: value, Time: time.Now(), Headers: headers}
	select {
	case p.inbox <- m:
	default:
		metrics.EventPublished(topic, false)
		p.log.WithField("topic", topic).Warn("kafka inbox full, event dropped")
	}
}

// Close stops accepting messages; the loop flushes what is queued and exits.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

// WaitClosed blocks until the loop has flushed and closed the writer.
func (p *Producer) WaitClosed() { <-p.done }
