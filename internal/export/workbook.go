package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ganpare/densai/internal/report"
	"github.com/xuri/excelize/v2"
)

const (
	workbookExt     = ".xlsx"
	summarySheet    = "Reports"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var summaryHeader = []string{
	"Report Number", "Bank", "Branch", "Company", "Contact", "Handler", "Approver", "Approved At", "Escalation",
}

// buildWorkbook lists one report per row under a title row and a header.
func buildWorkbook(title string, reports []*report.ReportWithParties, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(summarySheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 20); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(summarySheet, "B", "I", 16); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, err
	}

	if err := f.SetCellValue(summarySheet, "A1", title); err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(summaryHeader))
	if err := f.MergeCell(summarySheet, "A1", lastCol+"1"); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(summaryHeader))
	for i, h := range summaryHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(summarySheet, "A2", &header); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(summarySheet, "A2", lastCol+"2", headerStyle); err != nil {
		return nil, err
	}

	for i, rp := range reports {
		row := []interface{}{
			rp.ReportNumber,
			bankLabel(rp),
			branchLabel(rp),
			rp.CompanyName,
			rp.ContactPersonName,
			partyName(rp.Handler),
			partyName(rp.Approver),
			approvedAt(rp, loc),
			escalation(rp),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func bankLabel(rp *report.ReportWithParties) string {
	if rp.BankName == "" {
		return rp.BankCode
	}
	return rp.BankCode + " " + rp.BankName
}

func branchLabel(rp *report.ReportWithParties) string {
	if rp.BranchName == "" {
		return rp.BranchCode
	}
	return rp.BranchCode + " " + rp.BranchName
}

func partyName(p *report.Party) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func approvedAt(rp *report.ReportWithParties, loc *time.Location) string {
	if rp.ApprovedAt == nil {
		return ""
	}
	return rp.ApprovedAt.In(loc).Format("2006-01-02 15:04")
}

func escalation(rp *report.ReportWithParties) string {
	if !rp.EscalationRequired {
		return "No"
	}
	if rp.EscalationReason != nil {
		return "Yes: " + *rp.EscalationReason
	}
	return "Yes"
}
