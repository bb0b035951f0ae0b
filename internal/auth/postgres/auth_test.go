package auth_test

import (
	"context"
	"errors"

	"github.com/ganpare/densai/internal"
	authRepo "github.com/ganpare/densai/internal/auth/postgres"
	userDatamodel "github.com/ganpare/densai/internal/core/datamodel/user"
	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/ganpare/densai/internal/testutil"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Auth Repository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo *authRepo.Repository
		id   int64
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = testutil.MustOpenSQLite("auth")
		repo = authRepo.NewRepository(db)
		id = testutil.SeedUser(db, "Mixed.Case@example.com", "Mixed", "approver", "handler")
	})

	It("finds credentials case-insensitively", func() {
		creds, err := repo.GetCredentialsByEmail(ctx, "mixed.case@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(creds.UserID).To(Equal(id))
		Expect(creds.PasswordHash).To(Equal("x"))
		Expect(creds.IsActive).To(BeTrue())
	})

	It("returns ErrUserNotFound for unknown emails", func() {
		_, err := repo.GetCredentialsByEmail(ctx, "nobody@example.com")
		Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
	})

	It("still returns credentials of inactive users so the service can refuse them", func() {
		Expect(db.Model(&userDatamodel.User{}).Where("id = ?", id).Update("is_active", false).Error).To(Succeed())

		creds, err := repo.GetCredentialsByEmail(ctx, "mixed.case@example.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(creds.IsActive).To(BeFalse())
	})

	It("loads roles in canonical order", func() {
		u, err := repo.GetUserWithRoles(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Name).To(Equal("Mixed"))
		Expect(u.Roles).To(Equal([]coreuser.Role{coreuser.RoleHandler, coreuser.RoleApprover}))
	})

	It("ignores unknown role tags", func() {
		Expect(db.Create(&userDatamodel.UserRole{UserID: id, Role: "superuser"}).Error).To(Succeed())

		u, err := repo.GetUserWithRoles(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Roles).To(HaveLen(2))
	})

	It("returns ErrUserNotFound for unknown ids", func() {
		_, err := repo.GetUserWithRoles(ctx, 4242)
		Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
	})
})
