package export

import (
	"strings"
	"time"

	"github.com/ganpare/densai/internal"
	"github.com/ganpare/densai/internal/core/common/validation"
)

const dateLayout = "2006-01-02"

type BulkExportDTO struct {
	BankCode string `json:"bank_code"`
	Date     string `json:"date"`
}

func (dto *BulkExportDTO) Normalize() {
	dto.BankCode = strings.TrimSpace(dto.BankCode)
	dto.Date = strings.TrimSpace(dto.Date)
}

func (dto BulkExportDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("bank_code", dto.BankCode).Required().MaxLength(10)
	v.Field("date", dto.Date).Required().Custom(func(value interface{}) *internal.AppError {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return internal.NewValidationFieldError("date", "date must be formatted as YYYY-MM-DD", internal.ErrCodeValidationFailed)
		}
		return nil
	})
	return v.Validate()
}

// Day returns local midnight of the requested date.
func (dto BulkExportDTO) Day(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateLayout, dto.Date, loc)
}

// File is one artifact written to the output directory.
type File struct {
	Name        string `json:"file_name"`
	Path        string `json:"-"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Body        []byte `json:"-"`
}

type BulkResult struct {
	BankCode string `json:"bank_code"`
	Date     string `json:"date"`
	Count    int    `json:"count"`
	PDF      *File  `json:"pdf"`
	Workbook *File  `json:"workbook"`
}
