package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// feed serves msgs in order, then blocks until ctx ends.
func feed(msgs []kafka.Message) fetchFunc {
	var mu sync.Mutex
	i := 0
	return func(ctx context.Context) (kafka.Message, error) {
		mu.Lock()
		if i < len(msgs) {
			m := msgs[i]
			i++
			mu.Unlock()
			return m, nil
		}
		mu.Unlock()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
}

type commitLog struct {
	mu      sync.Mutex
	offsets map[int][]int64
	total   int
	want    int
	done    chan struct{}
}

func newCommitLog(want int) *commitLog {
	return &commitLog{offsets: map[int][]int64{}, want: want, done: make(chan struct{})}
}

func (c *commitLog) commit(ctx context.Context, msgs ...kafka.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range msgs {
		c.offsets[m.Partition] = append(c.offsets[m.Partition], m.Offset)
		c.total++
	}
	if c.total == c.want {
		close(c.done)
	}
	return nil
}

func interleaved(partitions, perPartition int) []kafka.Message {
	var msgs []kafka.Message
	for off := 0; off < perPartition; off++ {
		for p := 0; p < partitions; p++ {
			msgs = append(msgs, kafka.Message{Topic: "t", Partition: p, Offset: int64(off), Key: []byte{byte(p)}})
		}
	}
	return msgs
}

func newTestConsumer(workers int) *Consumer {
	log, _ := test.NewNullLogger()
	return &Consumer{workers: workers, log: log, retryMin: time.Millisecond, retryMax: 2 * time.Millisecond}
}

func runUntilCommitted(t *testing.T, c *Consumer, msgs []kafka.Message, h Handler) *commitLog {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cl := newCommitLog(len(msgs))

	errc := make(chan error, 1)
	go func() { errc <- c.run(ctx, feed(msgs), cl.commit, h) }()

	select {
	case <-cl.done:
	case <-time.After(5 * time.Second):
		t.Fatal("messages were not all committed")
	}
	cancel()
	require.NoError(t, <-errc)
	return cl
}

func TestSamePartitionIsSerialAndOrdered(t *testing.T) {
	c := newTestConsumer(4)
	msgs := interleaved(3, 20)

	var mu sync.Mutex
	inFlight := map[int]int{}
	handled := map[int][]int64{}
	overlap := false

	h := func(ctx context.Context, m kafka.Message) error {
		mu.Lock()
		inFlight[m.Partition]++
		if inFlight[m.Partition] > 1 {
			overlap = true
		}
		handled[m.Partition] = append(handled[m.Partition], m.Offset)
		mu.Unlock()

		time.Sleep(time.Millisecond)

		mu.Lock()
		inFlight[m.Partition]--
		mu.Unlock()
		return nil
	}

	cl := runUntilCommitted(t, c, msgs, h)

	assert.False(t, overlap, "two messages of one partition ran at the same time")
	for p := 0; p < 3; p++ {
		want := make([]int64, 20)
		for i := range want {
			want[i] = int64(i)
		}
		assert.Equal(t, want, handled[p])
		assert.Equal(t, want, cl.offsets[p])
	}
}

func TestFailedMessageBlocksLaterOffsets(t *testing.T) {
	c := newTestConsumer(2)
	msgs := interleaved(1, 4)

	var mu sync.Mutex
	failures := 0
	h := func(ctx context.Context, m kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		if m.Offset == 1 && failures < 3 {
			failures++
			return errors.New("store unavailable")
		}
		return nil
	}

	cl := runUntilCommitted(t, c, msgs, h)

	assert.Equal(t, 3, failures)
	assert.Equal(t, []int64{0, 1, 2, 3}, cl.offsets[0])
}

func TestLaneFor(t *testing.T) {
	for p := 0; p < 10; p++ {
		l := laneFor(kafka.Message{Partition: p}, 4)
		assert.Equal(t, p%4, l)
	}
}
