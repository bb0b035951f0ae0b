package sequence_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ganpare/densai/internal/sequence"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FileNamer", func() {
	var (
		dir   string
		namer *sequence.FileNamer
		day   time.Time
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		namer = sequence.NewFileNamer(dir, time.UTC)
		day = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	})

	It("starts at 001 and follows the highest existing file", func() {
		// Given
		Expect(os.WriteFile(filepath.Join(dir, "0001_100_20250314_007.pdf"), nil, 0o644)).To(Succeed())
		Expect(os.WriteFile(filepath.Join(dir, "0001_200_20250314_050.pdf"), nil, 0o644)).To(Succeed())

		// When
		r, err := namer.ReserveReport("0001", "100", day)

		// Then
		Expect(err).NotTo(HaveOccurred())
		Expect(r.Name).To(Equal("0001_100_20250314_008.pdf"))
		Expect(r.Path).To(BeAnExistingFile())

		other, err := namer.ReserveReport("0002", "100", day)
		Expect(err).NotTo(HaveOccurred())
		Expect(other.Name).To(Equal("0002_100_20250314_001.pdf"))
	})

	It("gives concurrent callers distinct names", func() {
		var (
			mu    sync.Mutex
			wg    sync.WaitGroup
			names []string
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				r, err := namer.ReserveReport("0001", "100", day)
				Expect(err).NotTo(HaveOccurred())
				mu.Lock()
				names = append(names, r.Name)
				mu.Unlock()
			}()
		}
		wg.Wait()

		Expect(names).To(HaveLen(20))
		unique := map[string]bool{}
		for _, n := range names {
			unique[n] = true
		}
		Expect(unique).To(HaveLen(20))
		Expect(unique).To(HaveKey("0001_100_20250314_020.pdf"))
	})

	It("counts bulk exports separately and shares the stem with siblings", func() {
		_, err := namer.ReserveReport("0001", "100", day)
		Expect(err).NotTo(HaveOccurred())

		r, err := namer.ReserveBulk("0001", day, ".pdf")

		Expect(err).NotTo(HaveOccurred())
		Expect(r.Name).To(Equal("0001_BULK_20250314_001.pdf"))
		Expect(r.SiblingPath(".xlsx")).To(Equal(filepath.Join(dir, "0001_BULK_20250314_001.xlsx")))
	})

	It("keeps single reports out of the bulk sequence", func() {
		// Given a bulk export already written for the day
		_, err := namer.ReserveBulk("0001", day, ".pdf")
		Expect(err).NotTo(HaveOccurred())

		// When a report's branch code equals the bulk marker
		_, upper := namer.ReserveReport("0001", "BULK", day)
		_, lower := namer.ReserveReport("0001", " bulk ", day)

		// Then no name is reserved and the bulk sequence is untouched
		Expect(errors.Is(upper, sequence.ErrReservedCode)).To(BeTrue())
		Expect(errors.Is(lower, sequence.ErrReservedCode)).To(BeTrue())
		next, err := namer.ReserveBulk("0001", day, ".pdf")
		Expect(err).NotTo(HaveOccurred())
		Expect(next.Name).To(Equal("0001_BULK_20250314_002.pdf"))
	})

	It("keeps codes inside the output directory", func() {
		r, err := namer.ReserveReport("../x", "1/2", day)

		Expect(err).NotTo(HaveOccurred())
		Expect(filepath.Dir(r.Path)).To(Equal(dir))
		Expect(r.Name).To(Equal("---x_1-2_20250314_001.pdf"))
	})

	It("releases a reservation", func() {
		r, err := namer.ReserveReport("0001", "100", day)
		Expect(err).NotTo(HaveOccurred())

		Expect(r.Release()).To(Succeed())
		Expect(r.Path).NotTo(BeAnExistingFile())
	})
})
