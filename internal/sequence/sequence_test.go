package sequence_test

import (
	"context"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ganpare/densai/internal/sequence"
	"github.com/ganpare/densai/internal/testutil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

func drain(counter sequence.Counter, scope string, workers, perWorker int) []int64 {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen []int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				v, err := counter.Next(context.Background(), scope)
				Expect(err).NotTo(HaveOccurred())
				mu.Lock()
				seen = append(seen, v)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return seen
}

func consecutive(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

var _ = Describe("GormCounter", func() {
	var counter *sequence.GormCounter

	BeforeEach(func() {
		counter = sequence.NewGormCounter(testutil.MustOpenSQLite("gorm_counter"))
	})

	It("starts every scope at one and increments independently", func() {
		ctx := context.Background()

		a1, err := counter.Next(ctx, "report:2025-01")
		Expect(err).NotTo(HaveOccurred())
		a2, _ := counter.Next(ctx, "report:2025-01")
		b1, _ := counter.Next(ctx, "report:2025-02")

		Expect(a1).To(Equal(int64(1)))
		Expect(a2).To(Equal(int64(2)))
		Expect(b1).To(Equal(int64(1)))
	})

	It("never hands out the same value to concurrent callers", func() {
		seen := drain(counter, "report:2025-03", 8, 10)

		Expect(seen).To(ConsistOf(consecutive(80)))
	})

	It("only raises the counter in EnsureAtLeast", func() {
		ctx := context.Background()
		scope := "report:2025-04"

		Expect(counter.EnsureAtLeast(ctx, scope, 7)).To(Succeed())
		Expect(counter.EnsureAtLeast(ctx, scope, 3)).To(Succeed())

		current, err := counter.Current(ctx, scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(current).To(Equal(int64(7)))

		next, err := counter.Next(ctx, scope)
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal(int64(8)))
	})
})

var _ = Describe("RedisCounter", func() {
	var (
		srv     *miniredis.Miniredis
		counter *sequence.RedisCounter
	)

	BeforeEach(func() {
		var err error
		srv, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		counter = sequence.NewRedisCounter(redis.NewClient(&redis.Options{Addr: srv.Addr()}))
	})

	AfterEach(func() {
		srv.Close()
	})

	It("issues unique values under concurrency", func() {
		seen := drain(counter, "report:2025-05", 10, 10)

		Expect(seen).To(ConsistOf(consecutive(100)))
		Expect(srv.Get("seq:report:2025-05")).To(Equal("100"))
	})

	It("raises but never lowers the counter", func() {
		ctx := context.Background()

		Expect(counter.EnsureAtLeast(ctx, "s", 12)).To(Succeed())
		Expect(counter.EnsureAtLeast(ctx, "s", 4)).To(Succeed())

		next, err := counter.Next(ctx, "s")
		Expect(err).NotTo(HaveOccurred())
		Expect(next).To(Equal(int64(13)))
	})
})

var _ = Describe("Generator", func() {
	var (
		tokyo *time.Location
		gen   *sequence.Generator
	)

	BeforeEach(func() {
		var err error
		tokyo, err = time.LoadLocation("Asia/Tokyo")
		Expect(err).NotTo(HaveOccurred())
		gen = sequence.NewGenerator(sequence.NewGormCounter(testutil.MustOpenSQLite("generator")), tokyo)
	})

	It("formats RPT-YYYY-MM-NNN in the configured zone", func() {
		// 2025-01-31 20:00 UTC is already February in Tokyo
		now := time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC)

		first, err := gen.NextReportNumber(context.Background(), now)
		Expect(err).NotTo(HaveOccurred())
		second, err := gen.NextReportNumber(context.Background(), now)
		Expect(err).NotTo(HaveOccurred())

		Expect(first).To(Equal("RPT-2025-02-001"))
		Expect(second).To(Equal("RPT-2025-02-002"))
	})

	It("restarts the sequence each month", func() {
		jan := time.Date(2025, 1, 10, 0, 0, 0, 0, tokyo)
		feb := time.Date(2025, 2, 10, 0, 0, 0, 0, tokyo)

		_, _ = gen.NextReportNumber(context.Background(), jan)
		n, err := gen.NextReportNumber(context.Background(), feb)

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal("RPT-2025-02-001"))
	})

	It("continues after the resync floor", func() {
		now := time.Date(2025, 6, 1, 9, 0, 0, 0, tokyo)

		Expect(gen.Resync(context.Background(), now, 41)).To(Succeed())
		n, err := gen.NextReportNumber(context.Background(), now)

		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal("RPT-2025-06-042"))
	})

	It("parses the trailing sequence", func() {
		seq, ok := sequence.ParseReportSequence("RPT-2025-06-042")
		Expect(ok).To(BeTrue())
		Expect(seq).To(Equal(int64(42)))

		_, ok = sequence.ParseReportSequence("garbage")
		Expect(ok).To(BeFalse())
	})
})
