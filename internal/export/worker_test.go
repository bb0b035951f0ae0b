package export_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ganpare/densai/internal/core/events"
	"github.com/ganpare/densai/internal/export"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pool", func() {
	var lg *slog.Logger

	BeforeEach(func() {
		lg = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	It("runs every queued job", func() {
		var (
			mu   sync.Mutex
			seen []string
		)
		pool := export.NewPool(export.PoolConfig{MaxWorkers: 2, JobQueueSize: 10}, func(job export.PDFJob) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, job.ReportID)
		}, lg)
		defer pool.Shutdown()

		for _, id := range []string{"a", "b", "c"} {
			Expect(pool.Enqueue(export.PDFJob{ReportID: id})).To(Succeed())
		}

		Eventually(func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), seen...)
		}).Should(ConsistOf("a", "b", "c"))
	})

	It("reports a full queue instead of blocking", func() {
		// Given a single worker stuck on its first job
		release := make(chan struct{})
		pool := export.NewPool(export.PoolConfig{MaxWorkers: 1, JobQueueSize: 1}, func(export.PDFJob) {
			<-release
		}, lg)

		// When jobs keep arriving
		// Then enqueueing eventually fails fast
		Eventually(func() error {
			return pool.Enqueue(export.PDFJob{ReportID: "x"})
		}).Should(MatchError(export.ErrQueueFull))

		close(release)
		pool.Shutdown()
	})

	It("refuses work after shutdown", func() {
		pool := export.NewPool(export.PoolConfig{}, func(export.PDFJob) {}, lg)
		pool.Shutdown()
		pool.Shutdown()

		Expect(pool.Enqueue(export.PDFJob{ReportID: "late"})).To(MatchError(export.ErrPoolClosed))
	})
})

var _ = Describe("EventHandler", func() {
	It("writes the pdf of an approved report in the background", func() {
		// Given the handler subscribed to approvals
		dir := GinkgoT().TempDir()
		approvedAt := time.Date(2025, 4, 1, 1, 0, 0, 0, time.UTC)
		svc := newExportService(dir, newFakeReports(approvedReport("r1", "RPT-2025-04-001", approvedAt)), nil)
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))

		h := export.NewEventHandler(svc, export.PoolConfig{MaxWorkers: 1, JobQueueSize: 4}, lg)
		defer h.Shutdown()
		bus := events.NewEventBus(lg)
		h.RegisterEventHandlers(bus)

		// When an approval is published
		ev := events.NewReportEvent(events.EventTypeReportApproved, "r1", "RPT-2025-04-001", 3, "pending_approval", "approved")
		Expect(bus.PublishSync(context.Background(), ev)).To(Succeed())

		// Then the file appears in the output directory
		Eventually(func() ([]os.DirEntry, error) {
			return os.ReadDir(dir)
		}).Should(HaveLen(1))
	})

	It("rejects events of the wrong shape", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		h := export.NewEventHandler(nil, export.PoolConfig{MaxWorkers: 1}, lg)
		defer h.Shutdown()

		err := h.HandleReportApproved(context.Background(), events.BaseEvent{ID: "e1", Type: events.EventTypeReportApproved})
		Expect(err).To(HaveOccurred())
	})
})
