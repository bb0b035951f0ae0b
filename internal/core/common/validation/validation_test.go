package validation_test

import (
	"github.com/ganpare/densai/internal"
	"github.com/ganpare/densai/internal/core/common/validation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ValidationBuilder", func() {
	It("treats whitespace-only strings as missing", func() {
		v := validation.NewValidator()
		v.Field("company_name", "   ").Required()

		err := v.Validate()

		Expect(err).NotTo(BeNil())
		Expect(err.Type).To(Equal(internal.ErrorTypeValidation))
		Expect(err.FieldErrors()).To(HaveLen(1))
		Expect(err.FieldErrors()[0].Field).To(Equal("company_name"))
	})

	It("collects one error per failing field", func() {
		reason := ""
		v := validation.NewValidator()
		v.Field("user_number", "").Required()
		v.Field("bank_code", "").Required().MaxLength(4)
		v.Field("escalation_reason", &reason).RequiredIf(true)
		v.Field("response_content", "ok").Required()

		err := v.Validate()

		Expect(err).NotTo(BeNil())
		fields := []string{}
		for _, fe := range err.FieldErrors() {
			fields = append(fields, fe.Field)
		}
		Expect(fields).To(Equal([]string{"user_number", "bank_code", "escalation_reason"}))
	})

	It("skips conditional requirements when the condition is false", func() {
		v := validation.NewValidator()
		v.Field("escalation_reason", (*string)(nil)).RequiredIf(false)

		Expect(v.Validate()).To(BeNil())
	})

	It("restricts values with OneOf", func() {
		v := validation.NewValidator()
		v.Field("status", "archived").OneOf("approved", "rejected")

		err := v.Validate()

		Expect(err).NotTo(BeNil())
		Expect(err.FieldErrors()[0].Code).To(Equal(string(internal.ErrCodeInvalidStatus)))
	})

	It("merges extra field errors with Append", func() {
		err := validation.Append(nil, internal.ValidationError{Field: "bank_code", Message: "unknown bank", Code: "UNKNOWN_REFERENCE"})

		Expect(err.FieldErrors()).To(HaveLen(1))
		Expect(validation.Append(nil)).To(BeNil())
	})

	DescribeTable("rejects malformed email addresses",
		func(email string) {
			v := validation.NewValidator()
			v.Field("email", email).Email()

			err := v.Validate()

			Expect(err).NotTo(BeNil())
			Expect(err.FieldErrors()[0].Field).To(Equal("email"))
		},
		Entry("trailing dot in domain", "a@b."),
		Entry("space in local part", "x y@z.co"),
		Entry("double at sign", "a@@b.c"),
		Entry("domain starting with a dot", "a@.b"),
		Entry("missing at sign", "handler.example.com"),
	)

	It("accepts well-formed email addresses and leaves blanks to Required", func() {
		v := validation.NewValidator()
		v.Field("email", "handler@example.co.jp").Email()
		v.Field("backup_email", "").Email()

		Expect(v.Validate()).To(BeNil())
	})
})
