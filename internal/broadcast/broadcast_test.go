package broadcast

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeqStrictlyIncreasing(t *testing.T) {
	var counter int32
	produce := func() []byte {
		n := atomic.AddInt32(&counter, 1)
		return []byte{byte(n)}
	}
	b := New("raw", produce, func() int { return 200 })
	b.Start()
	defer b.Stop()

	frames, cancel := b.Subscribe()
	defer cancel()

	var last uint64
	for i := 0; i < 5; i++ {
		f := <-frames
		require.Greater(t, f.Seq, last)
		last = f.Seq
	}
}

func TestStartStopIdempotent(t *testing.T) {
	b := New("raw", func() []byte { return []byte{1} }, func() int { return 30 })
	b.Start()
	b.Start()
	b.Stop()
	b.Stop()
}

func TestStopWakesSubscribers(t *testing.T) {
	b := New("raw", func() []byte { return nil }, func() int { return 10 })
	b.Start()

	frames, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range frames {
		}
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber channel did not close after Stop")
	}
}

func TestNilProduceDoesNotBumpSeq(t *testing.T) {
	b := New("raw", func() []byte { return nil }, func() int { return 50 })
	b.Start()
	defer b.Stop()
	time.Sleep(50 * time.Millisecond)
	_, ok := b.Latest()
	assert.False(t, ok)
}
