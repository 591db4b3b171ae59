package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/metrics"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Handler returns nil only when the message is fully processed and its
// offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type fetchFunc func(ctx context.Context) (kafka.Message, error)
type commitFunc func(ctx context.Context, msgs ...kafka.Message) error

type Consumer struct {
	r        *kafka.Reader
	workers  int
	log      logrus.FieldLogger
	retryMin time.Duration
	retryMax time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log logrus.FieldLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // synchronous commits
	})
	if workers <= 0 {
		workers = 1
	}
	return &Consumer{r: r, workers: workers, log: log, retryMin: 200 * time.Millisecond, retryMax: 10 * time.Second}
}

// Start fetches messages until ctx is cancelled. Each partition is pinned
// to one worker, so messages of a partition (and therefore of one
// aggregate key) are handled and committed strictly in offset order.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()
	return c.run(ctx, c.r.FetchMessage, c.r.CommitMessages, h)
}

func (c *Consumer) run(parent context.Context, fetch fetchFunc, commit commitFunc, h Handler) error {
	// workers retrying a message stop once run returns
	ctx, cancel := context.WithCancel(parent)
	lanes := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan kafka.Message, 16)
		wg.Add(1)
		go func(in <-chan kafka.Message) {
			defer wg.Done()
			for m := range in {
				c.process(ctx, h, commit, m)
			}
		}(lanes[i])
	}
	defer func() {
		for _, l := range lanes {
			close(l)
		}
		wg.Wait()
	}()
	defer cancel()

	for {
		m, err := fetch(ctx)
		if err != nil {
			if parent.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case lanes[laneFor(m, len(lanes))] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func laneFor(m kafka.Message, n int) int {
	p := m.Partition % n
	if p < 0 {
		p = -p
	}
	return p
}

// process retries a failing message in place until it succeeds or ctx
// ends; later offsets of the partition wait behind it.
func (c *Consumer) process(ctx context.Context, h Handler, commit commitFunc, m kafka.Message) {
	log := c.log.WithFields(logrus.Fields{"topic": m.Topic, "partition": m.Partition, "offset": m.Offset})
	wait := c.retryMin
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			metrics.EventConsumed(m.Topic, true)
			if err := commit(ctx, m); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("commit offset")
			}
			return
		}
		metrics.EventConsumed(m.Topic, false)
		log.WithError(err).WithField("attempt", attempt).Error("handle message")

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		if wait *= 2; wait > c.retryMax {
			wait = c.retryMax
		}
	}
}
