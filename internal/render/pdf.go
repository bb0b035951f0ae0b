package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ganpare/densai/internal/report"
	"github.com/go-pdf/fpdf"
)

const (
	utf8Family = "report-utf8"
	coreFamily = "Helvetica"

	labelWidth = 45.0
	lineHeight = 7.0
)

// PDFRenderer lays reports out on A4 pages. With a font path it embeds that
// UTF-8 font; otherwise text goes through the cp1252 translator of the core
// fonts.
type PDFRenderer struct {
	loc      *time.Location
	fontPath string
	now      func() time.Time
}

func NewPDFRenderer(loc *time.Location, fontPath string) *PDFRenderer {
	return &PDFRenderer{loc: loc, fontPath: fontPath, now: time.Now}
}

var _ Renderer = (*PDFRenderer)(nil)

func (r *PDFRenderer) RenderForPrint(rp *report.ReportWithParties) (*Document, error) {
	if err := printable(rp); err != nil {
		return nil, err
	}
	return r.render(rp.ReportNumber, []*report.ReportWithParties{rp})
}

// RenderBulk writes one page per report into a single document. Every
// report must be approved.
func (r *PDFRenderer) RenderBulk(title string, reports []*report.ReportWithParties) (*Document, error) {
	for _, rp := range reports {
		if err := printable(rp); err != nil {
			return nil, err
		}
	}
	return r.render(title, reports)
}

type pdfDoc struct {
	*fpdf.Fpdf
	family string
	tr     func(string) string
}

func (r *PDFRenderer) newDoc(title string) *pdfDoc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetCreationDate(r.now())
	pdf.SetTitle(title, true)
	pdf.SetCreator("densai", true)

	d := &pdfDoc{Fpdf: pdf, family: coreFamily, tr: func(s string) string { return s }}
	if r.fontPath != "" {
		pdf.AddUTF8Font(utf8Family, "", r.fontPath)
		d.family = utf8Family
	} else {
		d.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(d.family, "", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("%s  %d/{nb}", d.tr(title), pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")
	return d
}

func (r *PDFRenderer) render(title string, reports []*report.ReportWithParties) (*Document, error) {
	d := r.newDoc(title)
	if len(reports) == 0 {
		d.AddPage()
		d.SetFont(d.family, "", 12)
		d.CellFormat(0, lineHeight, d.tr("No approved reports."), "", 1, "L", false, 0, "")
	}
	for _, rp := range reports {
		r.page(d, newView(rp, r.loc))
	}

	if d.Err() {
		return nil, fmt.Errorf("build pdf: %w", d.Error())
	}
	var buf bytes.Buffer
	if err := d.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return &Document{ContentType: ContentTypePDF, Ext: ".pdf", Body: buf.Bytes()}, nil
}

func (r *PDFRenderer) page(d *pdfDoc, v view) {
	d.AddPage()
	d.SetFont(d.family, "", 16)
	d.CellFormat(0, 10, d.tr("Inquiry Response Report"), "", 1, "C", false, 0, "")
	d.Ln(3)

	escalation := "Not required"
	if v.EscalationRequired {
		escalation = "Required: " + v.EscalationReason
	}

	d.SetFont(d.family, "", 10)
	rows := [][2]string{
		{"Report No.", v.ReportNumber},
		{"Created", v.CreatedAt},
		{"Approved", v.ApprovedAt},
		{"Bank", v.BankCode + " " + v.BankName},
		{"Branch", v.BranchCode + " " + v.BranchName},
		{"User No.", v.UserNumber},
		{"Company", v.CompanyName},
		{"Contact Person", v.ContactPersonName},
		{"Inquiry", v.InquiryContent},
		{"Response", v.ResponseContent},
		{"Escalation", escalation},
		{"Handler", v.HandlerName},
		{"Approver", v.ApproverName},
	}
	pageWidth, _ := d.GetPageSize()
	left, _, right, _ := d.GetMargins()
	valueWidth := pageWidth - left - right - labelWidth

	for _, row := range rows {
		x, y := d.GetXY()
		d.SetFillColor(235, 235, 235)
		d.MultiCell(labelWidth, lineHeight, d.tr(row[0]), "1", "L", true)
		labelBottom := d.GetY()

		d.SetXY(x+labelWidth, y)
		d.MultiCell(valueWidth, lineHeight, d.tr(row[1]), "1", "L", false)
		if d.GetY() < labelBottom {
			d.SetY(labelBottom)
		}
	}
}
