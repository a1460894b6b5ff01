package provisioning_test

import (
	"context"
	"errors"
	"sync"
	"time"

	provisioningdm "github.com/frahmantamala/number-provisioning/internal/core/datamodel/provisioning"
	"github.com/frahmantamala/number-provisioning/internal/core/events"
	"github.com/frahmantamala/number-provisioning/internal/observability"
	"github.com/frahmantamala/number-provisioning/internal/provisioning"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// MockTaskStore implements provisioning.TaskStore in memory
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[int64]*provisioningdm.Task
}

func NewMockTaskStore(tasks ...provisioningdm.Task) *MockTaskStore {
	s := &MockTaskStore{tasks: map[int64]*provisioningdm.Task{}}
	for i := range tasks {
		t := tasks[i]
		s.tasks[t.ID] = &t
	}
	return s
}

func (s *MockTaskStore) Due(ctx context.Context, now time.Time, limit int) ([]provisioningdm.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []provisioningdm.Task
	for _, t := range s.tasks {
		if (t.Status == provisioningdm.StatusPending || t.Status == provisioningdm.StatusInProgress) && !t.NextAttemptAt.After(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *MockTaskStore) Claim(ctx context.Context, task provisioningdm.Task, now, leaseUntil time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[task.ID]
	if !ok || t.Attempts != task.Attempts || t.NextAttemptAt.After(now) {
		return false, nil
	}
	t.Attempts++
	t.Status = provisioningdm.StatusInProgress
	t.NextAttemptAt = leaseUntil
	return true, nil
}

func (s *MockTaskStore) Complete(ctx context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id].Status = provisioningdm.StatusDone
	s.tasks[id].CompletedAt = &at
	return nil
}

func (s *MockTaskStore) Reschedule(ctx context.Context, id int64, lastErr string, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id].Status = provisioningdm.StatusPending
	s.tasks[id].LastError = lastErr
	s.tasks[id].NextAttemptAt = next
	return nil
}

func (s *MockTaskStore) Fail(ctx context.Context, id int64, lastErr string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id].Status = provisioningdm.StatusFailed
	s.tasks[id].LastError = lastErr
	return nil
}

func (s *MockTaskStore) Get(id int64) provisioningdm.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tasks[id]
}

type MockActivator struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (a *MockActivator) Activate(ctx context.Context, number, region string) (*provisioning.Ack, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, number)
	if a.err != nil {
		return nil, a.err
	}
	return &provisioning.Ack{Status: "active"}, nil
}

func (a *MockActivator) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

var _ = Describe("Retrier", func() {
	var (
		now       time.Time
		store     *MockTaskStore
		activator *MockActivator
		publisher *recordingPublisher
		metrics   *observability.Metrics
		retrier   *provisioning.Retrier
		cfg       provisioning.WorkerConfig
	)

	task := func(id int64, attempts int) provisioningdm.Task {
		return provisioningdm.Task{
			ID:            id,
			PhoneNumberID: 10 + id,
			AccountID:     7,
			Number:        "+1415555000" + string(rune('0'+id)),
			Region:        "US",
			Status:        provisioningdm.StatusPending,
			Attempts:      attempts,
			NextAttemptAt: now.Add(-time.Minute),
		}
	}

	build := func() {
		retrier = provisioning.NewRetrier(store, activator, cfg, testLogger,
			provisioning.WithClock(func() time.Time { return now }),
			provisioning.WithPublisher(publisher),
			provisioning.WithMetrics(metrics))
	}

	BeforeEach(func() {
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		activator = &MockActivator{}
		publisher = &recordingPublisher{}
		metrics = observability.NewMetrics(prometheus.NewRegistry())
		cfg = provisioning.WorkerConfig{
			MaxWorkers:   2,
			PollInterval: 10 * time.Millisecond,
			MaxAttempts:  3,
			BaseBackoff:  time.Minute,
			MaxBackoff:   10 * time.Minute,
		}
	})

	Describe("Backoff", func() {
		It("doubles per attempt up to the cap", func() {
			store = NewMockTaskStore()
			build()

			Expect(retrier.Backoff(1)).To(Equal(time.Minute))
			Expect(retrier.Backoff(2)).To(Equal(2 * time.Minute))
			Expect(retrier.Backoff(3)).To(Equal(4 * time.Minute))
			Expect(retrier.Backoff(10)).To(Equal(10 * time.Minute))
		})
	})

	Describe("Process", func() {
		It("completes the task when activation succeeds", func() {
			store = NewMockTaskStore(task(1, 1))
			build()

			retrier.Process(context.Background(), store.Get(1))

			Expect(store.Get(1).Status).To(Equal(provisioningdm.StatusDone))
			Expect(publisher.Types()).To(Equal([]string{events.EventTypeProvisioningCompleted}))
			Expect(testutil.ToFloat64(metrics.Activations().WithLabelValues(observability.ActivationRetried))).To(Equal(1.0))
		})

		It("reschedules with backoff while attempts remain", func() {
			store = NewMockTaskStore(task(1, 2))
			activator.err = errors.New("backend returned 503")
			build()

			retrier.Process(context.Background(), store.Get(1))

			got := store.Get(1)
			Expect(got.Status).To(Equal(provisioningdm.StatusPending))
			Expect(got.LastError).To(Equal("backend returned 503"))
			Expect(got.NextAttemptAt).To(Equal(now.Add(2 * time.Minute)))
			Expect(publisher.Types()).To(BeEmpty())
		})

		It("gives up after the last attempt", func() {
			store = NewMockTaskStore(task(1, 3))
			activator.err = errors.New("backend returned 503")
			build()

			retrier.Process(context.Background(), store.Get(1))

			Expect(store.Get(1).Status).To(Equal(provisioningdm.StatusFailed))
			Expect(publisher.Types()).To(Equal([]string{events.EventTypeProvisioningFailed}))
			Expect(testutil.ToFloat64(metrics.Activations().WithLabelValues(observability.ActivationAbandoned))).To(Equal(1.0))
		})
	})

	Describe("Poll", func() {
		It("claims only due tasks", func() {
			future := task(2, 0)
			future.NextAttemptAt = now.Add(time.Hour)
			store = NewMockTaskStore(task(1, 0), future)
			build()

			queued, err := retrier.Poll(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(queued).To(Equal(1))
			Expect(store.Get(1).Attempts).To(Equal(1))
			Expect(store.Get(1).Status).To(Equal(provisioningdm.StatusInProgress))
			Expect(store.Get(2).Attempts).To(Equal(0))
		})
	})

	Describe("Run", func() {
		It("drains due tasks through the worker pool and stops on cancel", func() {
			store = NewMockTaskStore(task(1, 0), task(2, 0), task(3, 0))
			build()

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- retrier.Run(ctx) }()

			Eventually(func() []string {
				var statuses []string
				for _, id := range []int64{1, 2, 3} {
					statuses = append(statuses, store.Get(id).Status)
				}
				return statuses
			}, time.Second, 10*time.Millisecond).Should(HaveEach(provisioningdm.StatusDone))
			Expect(activator.Calls()).To(Equal(3))

			cancel()
			Eventually(done, time.Second).Should(Receive(BeNil()))
		})
	})
})
