package internal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ganpare/densai/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("matches sentinels through wrapping", func() {
		err := fmt.Errorf("load: %w", internal.NewNotFoundError("gone", internal.ErrCodeReportNotFound))

		Expect(errors.Is(err, internal.ErrReportNotFound)).To(BeTrue())
		Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeFalse())
		Expect(internal.IsType(err, internal.ErrorTypeNotFound)).To(BeTrue())
	})

	It("maps invalid transitions to 409", func() {
		status, _ := internal.ErrReportNotApproved.ToHTTPResponse()
		Expect(status).To(Equal(http.StatusConflict))
	})

	It("carries field errors in the envelope", func() {
		appErr := internal.NewValidationFieldError("bank_code", "bank_code is required", internal.ErrCodeRequiredField)

		Expect(appErr.FieldErrors()).To(HaveLen(1))
		Expect(appErr.Error()).To(Equal("bank_code is required"))

		status, body := appErr.ToHTTPResponse()
		Expect(status).To(Equal(http.StatusBadRequest))

		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(`"field":"bank_code"`))
		Expect(string(raw)).To(ContainSubstring(`"type":"VALIDATION_ERROR"`))
	})

	It("hides the cause from clients", func() {
		appErr := internal.NewInternalError("database unavailable", errors.New("dial tcp: refused"))

		Expect(appErr.Error()).To(ContainSubstring("refused"))
		raw, err := json.Marshal(appErr)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).NotTo(ContainSubstring("refused"))
	})
})
