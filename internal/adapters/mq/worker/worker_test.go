package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/crux/internal/adapters/mq/queue"
	"github.com/okian/crux/internal/adapters/mq/worker"
	"github.com/okian/crux/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeAnalyzer struct {
	failOn uuid.UUID
}

func (a *fakeAnalyzer) Analyze(_ context.Context, job queue.Job) (*model.SessionReport, error) {
	if job.SessionID == a.failOn {
		return nil, errors.New("boom")
	}
	return &model.SessionReport{SessionID: job.SessionID}, nil
}

type captureSink struct {
	mu      sync.Mutex
	reports []*model.SessionReport
}

func (s *captureSink) Put(_ context.Context, r *model.SessionReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

func (s *captureSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}

func waitFor(cond func() bool) bool {
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestPoolProcessesJobs(t *testing.T) {
	Convey("Given a pool over a queue of completed sessions", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewMemory(queue.WithCapacity(16))
		sink := &captureSink{}
		broken := uuid.New()
		pool := worker.NewPool(2, q, &fakeAnalyzer{failOn: broken}, sink)
		pool.Start(ctx)

		Convey("Every analyzable job ends up in the sink", func() {
			ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
			for _, id := range ids {
				So(q.Enqueue(ctx, queue.Job{SessionID: id}), ShouldBeNil)
			}

			So(waitFor(func() bool { return sink.len() == 3 }), ShouldBeTrue)
			So(pool.Shutdown(context.Background()), ShouldBeNil)
		})

		Convey("A failing job is dropped, the rest keep flowing", func() {
			ok := uuid.New()
			So(q.Enqueue(ctx, queue.Job{SessionID: broken}), ShouldBeNil)
			So(q.Enqueue(ctx, queue.Job{SessionID: ok}), ShouldBeNil)

			So(waitFor(func() bool { return sink.len() == 1 }), ShouldBeTrue)
			sink.mu.Lock()
			got := sink.reports[0].SessionID
			sink.mu.Unlock()
			So(got, ShouldEqual, ok)
			So(pool.Shutdown(context.Background()), ShouldBeNil)
		})
	})
}
