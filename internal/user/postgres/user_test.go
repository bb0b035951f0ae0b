package user_test

import (
	"context"
	"errors"
	"time"

	"github.com/ganpare/densai/internal"
	reportDatamodel "github.com/ganpare/densai/internal/core/datamodel/report"
	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/ganpare/densai/internal/testutil"
	"github.com/ganpare/densai/internal/user"
	userPostgres "github.com/ganpare/densai/internal/user/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("User Repository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo *userPostgres.Repository
		now  time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		db = testutil.MustOpenSQLite("users")
		repo = userPostgres.NewRepository(db)
		now = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	})

	newUser := func(email string, roles ...coreuser.Role) *user.User {
		return &user.User{
			Email:        email,
			Name:         "Taro",
			PasswordHash: "hash",
			Roles:        roles,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	Describe("Create", func() {
		It("stores the user with its roles", func() {
			// Given a new approver
			u := newUser("taro@example.com", coreuser.RoleApprover, coreuser.RoleHandler)

			// When it is created
			Expect(repo.Create(ctx, u)).To(Succeed())

			// Then it reads back with normalized roles
			Expect(u.ID).NotTo(BeZero())
			got, err := repo.GetByID(ctx, u.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Email).To(Equal("taro@example.com"))
			Expect(got.Roles).To(Equal([]coreuser.Role{coreuser.RoleHandler, coreuser.RoleApprover}))
			Expect(got.IsActive).To(BeTrue())
		})

		It("returns ErrEmailTaken for a duplicate email", func() {
			Expect(repo.Create(ctx, newUser("dup@example.com", coreuser.RoleHandler))).To(Succeed())

			err := repo.Create(ctx, newUser("dup@example.com", coreuser.RoleHandler))
			Expect(errors.Is(err, user.ErrEmailTaken)).To(BeTrue())
		})
	})

	It("returns ErrUserNotFound for unknown ids", func() {
		_, err := repo.GetByID(ctx, 404)
		Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
	})

	It("pages users in id order and reports the total", func() {
		first := testutil.SeedUser(db, "a@example.com", "A", "handler")
		second := testutil.SeedUser(db, "b@example.com", "B", "approver")
		testutil.SeedUser(db, "c@example.com", "C", "admin")

		users, total, err := repo.List(ctx, 2, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(int64(3)))
		Expect(users).To(HaveLen(2))
		Expect(users[0].ID).To(Equal(first))
		Expect(users[1].ID).To(Equal(second))
		Expect(users[1].Roles).To(ConsistOf(coreuser.RoleApprover))

		users, _, err = repo.List(ctx, 2, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(1))
		Expect(users[0].Email).To(Equal("c@example.com"))
	})

	It("renames users", func() {
		id := testutil.SeedUser(db, "a@example.com", "A", "handler")

		Expect(repo.UpdateName(ctx, id, "Hanako", now)).To(Succeed())

		got, err := repo.GetByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("Hanako"))
		Expect(errors.Is(repo.UpdateName(ctx, 404, "x", now), internal.ErrUserNotFound)).To(BeTrue())
	})

	It("replaces the role set and approval level", func() {
		// Given a handler
		admin := testutil.SeedUser(db, "admin@example.com", "Admin", "admin")
		id := testutil.SeedUser(db, "a@example.com", "A", "handler")
		level := 2

		// When an admin makes them an approver only
		Expect(repo.ReplaceRoles(ctx, id, []coreuser.Role{coreuser.RoleApprover}, &level, admin, now)).To(Succeed())

		// Then the old role is gone and the level is kept
		got, err := repo.GetByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Roles).To(Equal([]coreuser.Role{coreuser.RoleApprover}))
		Expect(got.ApprovalLevel).NotTo(BeNil())
		Expect(*got.ApprovalLevel).To(Equal(2))
	})

	It("returns ErrUserNotFound when replacing roles of an unknown user", func() {
		err := repo.ReplaceRoles(ctx, 404, []coreuser.Role{coreuser.RoleHandler}, nil, 1, now)
		Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
	})

	It("deactivates and reactivates users", func() {
		id := testutil.SeedUser(db, "a@example.com", "A", "handler")

		Expect(repo.SetActive(ctx, id, false, now)).To(Succeed())
		got, err := repo.GetByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.IsActive).To(BeFalse())

		Expect(repo.SetActive(ctx, id, true, now)).To(Succeed())
		got, err = repo.GetByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.IsActive).To(BeTrue())
	})

	It("counts reports that reference the user as handler or approver", func() {
		handlerID := testutil.SeedUser(db, "h@example.com", "H", "handler")
		approverID := testutil.SeedUser(db, "a@example.com", "A", "approver")
		Expect(db.Create(&reportDatamodel.Report{
			ID:           "r-1",
			ReportNumber: "RPT-2025-03-001",
			Status:       "approved",
			HandlerID:    handlerID,
			ApproverID:   &approverID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}).Error).To(Succeed())

		count, err := repo.CountReportReferences(ctx, approverID)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(int64(1)))

		count, err = repo.CountReportReferences(ctx, handlerID)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(int64(1)))
	})

	It("deletes users together with their roles", func() {
		id := testutil.SeedUser(db, "a@example.com", "A", "handler", "approver")

		Expect(repo.Delete(ctx, id)).To(Succeed())

		_, err := repo.GetByID(ctx, id)
		Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())
		var roles int64
		Expect(db.Table("user_roles").Where("user_id = ?", id).Count(&roles).Error).To(Succeed())
		Expect(roles).To(BeZero())
		Expect(errors.Is(repo.Delete(ctx, id), internal.ErrUserNotFound)).To(BeTrue())
	})
})
