package framequeue_test

import (
	"testing"
	"time"

	"github.com/edgevision/edgevisiond/pkg/framequeue"
	"github.com/edgevision/edgevisiond/pkg/videoframe"
	"github.com/matryer/is"
)

func taggedFrame(tag byte) *videoframe.Raw {
	return &videoframe.Raw{
		Width: 2, Height: 2,
		Pixels:     []byte{tag, 0, 0, 0, 0, 0},
		CapturedAt: time.Now(),
	}
}

func TestEnqueueReportsAdmission(t *testing.T) {
	is := is.New(t)
	queue := framequeue.New()
	defer queue.Stop()

	is.True(queue.Enqueue(taggedFrame(1)))
	is.Equal(queue.Len(), 1)
}

func TestFourthEnqueueEvictsOnlyTheOldest(t *testing.T) {
	is := is.New(t)
	queue := framequeue.New()
	defer queue.Stop()

	for tag := byte(1); tag <= 4; tag++ {
		is.True(queue.Enqueue(taggedFrame(tag)))
	}

	is.Equal(queue.Len(), framequeue.DefaultCapacity)
	is.Equal(queue.Dropped(), uint64(1))

	// remaining content is the three most recent frames in arrival order
	for _, want := range []byte{2, 3, 4} {
		frame, ok := queue.Dequeue(time.Millisecond * 50)
		is.True(ok)
		is.Equal(frame.Pixels[0], want)
	}
}

func TestDequeueReturnsOldestFirst(t *testing.T) {
	is := is.New(t)
	queue := framequeue.New()
	defer queue.Stop()

	queue.Enqueue(taggedFrame(9))
	queue.Enqueue(taggedFrame(7))

	frame, ok := queue.Dequeue(time.Millisecond * 50)
	is.True(ok)
	is.Equal(frame.Pixels[0], byte(9))
}

func TestDequeueOnEmptyQueueBlocksOnlyUpToTimeout(t *testing.T) {
	is := is.New(t)
	queue := framequeue.New()
	defer queue.Stop()

	timeout := time.Millisecond * 100
	start := time.Now()
	frame, ok := queue.Dequeue(timeout)
	elapsed := time.Since(start)

	is.True(!ok)
	is.True(frame == nil)
	is.True(elapsed >= timeout)
	is.True(elapsed < timeout+time.Millisecond*500)
}

func TestStopUnblocksWaitingDequeue(t *testing.T) {
	is := is.New(t)
	queue := framequeue.New()

	result := make(chan bool)
	go func() {
		_, ok := queue.Dequeue(time.Second * 5)
		result <- ok
	}()

	time.Sleep(time.Millisecond * 20)
	queue.Stop()

	select {
	case ok := <-result:
		is.True(!ok)
	case <-time.After(time.Second):
		t.Fatal("dequeue still blocked after stop")
	}
}

func TestStoppedQueueRejectsEnqueueAndDequeue(t *testing.T) {
	is := is.New(t)
	queue := framequeue.New()

	queue.Enqueue(taggedFrame(1))
	queue.Stop()
	queue.Stop() // idempotent

	is.True(!queue.Enqueue(taggedFrame(2)))

	frame, ok := queue.Dequeue(time.Millisecond * 10)
	is.True(!ok)
	is.True(frame == nil)
	is.Equal(queue.Len(), 0)
}

func TestTinyCapacityStillDropsOldest(t *testing.T) {
	is := is.New(t)
	queue := framequeue.WithCapacity(1)
	defer queue.Stop()

	queue.Enqueue(taggedFrame(1))
	queue.Enqueue(taggedFrame(2))

	frame, ok := queue.Dequeue(time.Millisecond * 50)
	is.True(ok)
	is.Equal(frame.Pixels[0], byte(2))
	is.Equal(queue.Dropped(), uint64(1))
}
