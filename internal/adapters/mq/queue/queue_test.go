package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		q := NewMemory(WithCapacity(2))
		ctx := context.Background()

		Convey("Jobs come out in the order they went in", func() {
			first := Job{SessionID: uuid.New()}
			second := Job{SessionID: uuid.New()}
			So(q.Enqueue(ctx, first), ShouldBeNil)
			So(q.Enqueue(ctx, second), ShouldBeNil)
			So(q.Len(ctx), ShouldEqual, 2)

			jobs := q.Dequeue(ctx)
			So((<-jobs).SessionID, ShouldEqual, first.SessionID)
			So((<-jobs).SessionID, ShouldEqual, second.SessionID)
		})

		Convey("A full queue rejects instead of blocking", func() {
			So(q.Enqueue(ctx, Job{SessionID: uuid.New()}), ShouldBeNil)
			So(q.Enqueue(ctx, Job{SessionID: uuid.New()}), ShouldBeNil)
			So(q.Enqueue(ctx, Job{SessionID: uuid.New()}), ShouldEqual, ErrFull)
			So(q.Len(ctx), ShouldEqual, 2)
		})

		Convey("Enqueue stamps the time when the caller did not", func() {
			So(q.Enqueue(ctx, Job{SessionID: uuid.New()}), ShouldBeNil)
			j := <-q.Dequeue(ctx)
			So(j.EnqueuedAt.IsZero(), ShouldBeFalse)
		})
	})
}

func TestMemoryQueueClose(t *testing.T) {
	Convey("Given a queue holding one job", t, func() {
		q := NewMemory(WithCapacity(4))
		ctx := context.Background()
		id := uuid.New()
		So(q.Enqueue(ctx, Job{SessionID: id}), ShouldBeNil)

		Convey("Close drains before the channel closes", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Enqueue(ctx, Job{SessionID: uuid.New()}), ShouldEqual, ErrClosed)

			jobs := q.Dequeue(ctx)
			j, ok := <-jobs
			So(ok, ShouldBeTrue)
			So(j.SessionID, ShouldEqual, id)

			select {
			case _, ok := <-jobs:
				So(ok, ShouldBeFalse)
			case <-time.After(time.Second):
				So("dequeue channel never closed", ShouldBeEmpty)
			}
		})

		Convey("Close is idempotent", func() {
			So(q.Close(), ShouldBeNil)
			So(q.Close(), ShouldBeNil)
		})
	})
}
