package postgres_test

import (
	"context"
	"errors"

	"github.com/ganpare/densai/internal"
	institutionDatamodel "github.com/ganpare/densai/internal/core/datamodel/institution"
	"github.com/ganpare/densai/internal/institution"
	"github.com/ganpare/densai/internal/institution/postgres"
	"github.com/ganpare/densai/internal/testutil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Institution Repository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo institution.RepositoryAPI
		bank int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = testutil.MustOpenSQLite("institutions")
		repo = postgres.NewInstitutionRepository(db)
		bank = testutil.SeedInstitution(db, "0005", "Mitsubishi UFJ", "200", "001", "100")
		testutil.SeedInstitution(db, "0001", "Mizuho")
	})

	It("lists institutions ordered by code", func() {
		all, err := repo.GetAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(2))
		Expect(all[0].Code).To(Equal("0001"))
		Expect(all[1].Code).To(Equal("0005"))
	})

	It("finds an institution by code", func() {
		fi, err := repo.GetByCode(ctx, "0005")
		Expect(err).NotTo(HaveOccurred())
		Expect(fi.ID).To(Equal(bank))
		Expect(fi.Name).To(Equal("Mitsubishi UFJ"))
	})

	It("returns ErrInstitutionNotFound for unknown codes", func() {
		_, err := repo.GetByCode(ctx, "9999")
		Expect(errors.Is(err, internal.ErrInstitutionNotFound)).To(BeTrue())
	})

	It("lists branches ordered by branch code", func() {
		branches, err := repo.GetBranches(ctx, bank)
		Expect(err).NotTo(HaveOccurred())
		codes := make([]string, 0, len(branches))
		for _, b := range branches {
			codes = append(codes, b.BranchCode)
		}
		Expect(codes).To(Equal([]string{"001", "100", "200"}))
	})

	It("scopes branch lookups to the institution", func() {
		// Given a branch code that exists under another bank only
		other, err := repo.GetByCode(ctx, "0001")
		Expect(err).NotTo(HaveOccurred())

		// When it is looked up under each bank
		b, err := repo.GetBranch(ctx, bank, "100")
		Expect(err).NotTo(HaveOccurred())
		_, missErr := repo.GetBranch(ctx, other.ID, "100")

		// Then only the owning bank resolves it
		Expect(b.Name).To(Equal("Mitsubishi UFJ 100"))
		Expect(errors.Is(missErr, internal.ErrBranchNotFound)).To(BeTrue())
	})

	It("creates institutions and branches", func() {
		fi := &institutionDatamodel.FinancialInstitution{Code: "0009", Name: "SMBC"}
		Expect(repo.Create(ctx, fi)).To(Succeed())
		Expect(fi.ID).NotTo(BeZero())

		Expect(repo.CreateBranch(ctx, &institutionDatamodel.Branch{InstitutionID: fi.ID, BranchCode: "010", Name: "Tokyo"})).To(Succeed())

		branches, err := repo.GetBranches(ctx, fi.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(branches).To(HaveLen(1))
		Expect(branches[0].Name).To(Equal("Tokyo"))
	})

	It("rejects a duplicate branch code within one institution", func() {
		err := repo.CreateBranch(ctx, &institutionDatamodel.Branch{InstitutionID: bank, BranchCode: "100", Name: "again"})
		Expect(err).To(HaveOccurred())
	})
})
