package report_test

import (
	coreuser "github.com/ganpare/densai/internal/core/user"
	"github.com/ganpare/densai/internal/report"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Report lifecycle rules", func() {
	DescribeTable("CanTransition",
		func(from, to report.Status, allowed bool) {
			Expect(report.CanTransition(from, to)).To(Equal(allowed))
		},
		Entry("draft to pending", report.StatusDraft, report.StatusPendingApproval, true),
		Entry("draft to approved", report.StatusDraft, report.StatusApproved, false),
		Entry("draft to rejected", report.StatusDraft, report.StatusRejected, false),
		Entry("pending to approved", report.StatusPendingApproval, report.StatusApproved, true),
		Entry("pending to rejected", report.StatusPendingApproval, report.StatusRejected, true),
		Entry("pending to draft", report.StatusPendingApproval, report.StatusDraft, false),
		Entry("approved is terminal", report.StatusApproved, report.StatusRejected, false),
		Entry("approved to draft", report.StatusApproved, report.StatusDraft, false),
		Entry("rejected to draft", report.StatusRejected, report.StatusDraft, true),
		Entry("rejected to approved", report.StatusRejected, report.StatusApproved, false),
	)

	It("drops the escalation reason when escalation is off", func() {
		reason := "late payment"
		r := &report.Report{EscalationRequired: false, EscalationReason: &reason, CompanyName: " Acme "}

		r.Normalize()

		Expect(r.EscalationReason).To(BeNil())
		Expect(r.CompanyName).To(Equal("Acme"))
	})

	Describe("BuildFilter", func() {
		It("scopes handlers to their own reports", func() {
			f := report.BuildFilter(&coreuser.Actor{ID: 5, Roles: []coreuser.Role{coreuser.RoleHandler}}, "", "")

			Expect(f.Scope).To(Equal(report.ScopeOwn))
			Expect(f.Status).To(BeEmpty())
		})

		It("defaults approvers to pending only without status or search", func() {
			approver := &coreuser.Actor{ID: 5, Roles: []coreuser.Role{coreuser.RoleApprover}}

			Expect(report.BuildFilter(approver, "", "").Status).To(Equal(report.StatusPendingApproval))
			Expect(report.BuildFilter(approver, "", "acme").Status).To(BeEmpty())
			Expect(report.BuildFilter(approver, report.StatusApproved, "").Status).To(Equal(report.StatusApproved))
		})

		It("gives admins the unrestricted scope", func() {
			f := report.BuildFilter(&coreuser.Actor{ID: 5, Roles: []coreuser.Role{coreuser.RoleAdmin, coreuser.RoleApprover}}, "", "")

			Expect(f.Scope).To(Equal(report.ScopeAll))
			Expect(f.Status).To(BeEmpty())
		})
	})
})
