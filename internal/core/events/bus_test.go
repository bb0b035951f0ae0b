package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ganpare/densai/internal/core/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	Context("PublishSync", func() {
		It("delivers the event to every subscriber of its type", func() {
			// Given
			var got []string
			bus.Subscribe(events.EventTypeReportApproved, func(ctx context.Context, e events.Event) error {
				got = append(got, e.(*events.ReportEvent).ReportNumber)
				return nil
			})
			bus.Subscribe(events.EventTypeReportRejected, func(ctx context.Context, e events.Event) error {
				got = append(got, "wrong")
				return nil
			})

			// When
			err := bus.PublishSync(context.Background(),
				events.NewReportEvent(events.EventTypeReportApproved, "id-1", "RPT-2025-01-001", 7, "pending_approval", "approved"))

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal([]string{"RPT-2025-01-001"}))
		})

		It("returns the first handler error", func() {
			bus.Subscribe(events.EventTypeReportCreated, func(ctx context.Context, e events.Event) error {
				return errors.New("boom")
			})

			err := bus.PublishSync(context.Background(),
				events.NewReportEvent(events.EventTypeReportCreated, "id-1", "RPT-2025-01-001", 7, "", "draft"))

			Expect(err).To(MatchError(ContainSubstring("boom")))
		})
	})

	Context("Publish", func() {
		It("runs handlers even after the publishing context is cancelled", func() {
			// Given
			var calls int32
			done := make(chan struct{})
			bus.Subscribe(events.EventTypeReportSubmitted, func(ctx context.Context, e events.Event) error {
				defer close(done)
				if ctx.Err() == nil {
					atomic.AddInt32(&calls, 1)
				}
				return nil
			})
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			// When
			Expect(bus.Publish(ctx, events.NewReportEvent(events.EventTypeReportSubmitted, "id", "n", 1, "draft", "pending_approval"))).To(Succeed())

			// Then
			Eventually(done).Should(BeClosed())
			Expect(atomic.LoadInt32(&calls)).To(Equal(int32(1)))
		})
	})
})

var _ = Describe("EventBus delivery guarantees", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("keeps calling subscribers after one fails or panics", func() {
		var reached int32
		bus.Subscribe(events.EventTypeReportRejected, func(ctx context.Context, e events.Event) error {
			panic("bad subscriber")
		})
		bus.Subscribe(events.EventTypeReportRejected, func(ctx context.Context, e events.Event) error {
			return errors.New("second failed")
		})
		bus.Subscribe(events.EventTypeReportRejected, func(ctx context.Context, e events.Event) error {
			atomic.AddInt32(&reached, 1)
			return nil
		})

		err := bus.PublishSync(context.Background(),
			events.NewReportEvent(events.EventTypeReportRejected, "id", "n", 1, "pending_approval", "rejected"))

		Expect(err).To(MatchError(ContainSubstring("handler panic: bad subscriber")))
		Expect(err).To(MatchError(ContainSubstring("second failed")))
		Expect(atomic.LoadInt32(&reached)).To(Equal(int32(1)))
		Expect(bus.HandlerCount(events.EventTypeReportRejected)).To(Equal(3))
	})

	It("waits for asynchronous handlers to drain", func() {
		release := make(chan struct{})
		var finished int32
		bus.Subscribe(events.EventTypeReportApproved, func(ctx context.Context, e events.Event) error {
			<-release
			atomic.StoreInt32(&finished, 1)
			return nil
		})
		Expect(bus.Publish(context.Background(),
			events.NewReportEvent(events.EventTypeReportApproved, "id", "n", 1, "pending_approval", "approved"))).To(Succeed())

		short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(bus.Wait(short)).To(MatchError(context.DeadlineExceeded))

		close(release)
		Expect(bus.Wait(context.Background())).To(Succeed())
		Expect(atomic.LoadInt32(&finished)).To(Equal(int32(1)))
	})
})
