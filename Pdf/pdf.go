package Pdf

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"Rishui/Models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ReportData is the full context required by the report template.
type ReportData struct {
	Report    Models.Report
	Business  Models.Business
	Inspector Models.User
}

// Renderer prints inspection reports to PDF via headless Chromium.
type Renderer struct {
	ChromiumPath string
	PublicDir    string
	templates    *template.Template
}

// NewRenderer parses the report template from templateDir. publicDir is the
// root the signature images live under. chromiumPath is optional; when empty
// chromedp falls back to the bundled lookup order.
func NewRenderer(templateDir, publicDir, chromiumPath string) (*Renderer, error) {
	templates, err := template.ParseFiles(filepath.Join(templateDir, "report.html"))
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &Renderer{ChromiumPath: chromiumPath, PublicDir: publicDir, templates: templates}, nil
}

var statusDisplay = map[string][2]string{
	Models.ReportStatusPass:            {"עבר", "green"},
	Models.ReportStatusFail:            {"נכשל", "red"},
	Models.ReportStatusConditionalPass: {"עבר בתנאי", "orange"},
}

// TemplateData flattens report context into the values the template reads.
// Shared by the PDF renderer and the printable report view. publicDir is the
// root the signature images live under.
func TemplateData(publicDir string, data ReportData) map[string]interface{} {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		loc = time.Local
	}

	statusText, statusColor := data.Report.Status, "black"
	if display, ok := statusDisplay[data.Report.Status]; ok {
		statusText, statusColor = display[0], display[1]
	}

	return map[string]interface{}{
		"Report":             data.Report,
		"Business":           data.Business,
		"Inspector":          data.Inspector,
		"VisitDate":          data.Report.VisitDate.In(loc).Format("02/01/2006 15:04"),
		"StatusText":         statusText,
		"StatusColor":        template.CSS(statusColor),
		"Risk":               data.Report.RiskAssessment(),
		"InspectorSignature": LoadSignature(publicDir, data.Report.InspectorSignaturePath),
		"OwnerSignature":     LoadSignature(publicDir, data.Report.OwnerSignaturePath),
		"OwnerRefused":       data.Report.OwnerRefusedSign,
	}
}

// LoadSignature reads a stored signature image and returns it as an inline
// data URL, so the printed document does not depend on the web server.
// Returns "" when no signature was stored or the file is unreadable.
func LoadSignature(publicDir, path string) template.URL {
	if path == "" {
		return ""
	}
	raw, err := os.ReadFile(filepath.Join(publicDir, filepath.FromSlash(path)))
	if err != nil {
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
}

// RenderHTML executes the report template.
func (r *Renderer) RenderHTML(data ReportData) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, "report.html", TemplateData(r.PublicDir, data)); err != nil {
		return "", fmt.Errorf("execute report template: %w", err)
	}
	return buf.String(), nil
}

const footerTemplate = `<div style="font-family: Arial, sans-serif; font-size: 9px; width: 100%; text-align: center; padding: 0 20px;">
מסמך זה הופק באופן ממוחשב | עמוד <span class="pageNumber"></span> מתוך <span class="totalPages"></span>
</div>`

// RenderReport builds the report HTML and prints it to an A4 PDF. The
// caller bounds how long it is willing to wait; ctx carries that deadline.
func (r *Renderer) RenderReport(ctx context.Context, data ReportData) ([]byte, error) {
	html, err := r.RenderHTML(data)
	if err != nil {
		return nil, err
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	if r.ChromiumPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(r.ChromiumPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()
	runCtx, cancelRun := chromedp.NewContext(allocCtx)
	defer cancelRun()

	var pdfBuf []byte
	dataURL := "data:text/html," + url.PathEscape(html)
	err = chromedp.Run(runCtx,
		chromedp.Navigate(dataURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, printErr := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				WithMarginTop(0.55).
				WithMarginRight(0.55).
				WithMarginBottom(0.83).
				WithMarginLeft(0.55).
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate("<div></div>").
				WithFooterTemplate(footerTemplate).
				Do(ctx)
			if printErr != nil {
				return printErr
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("print report pdf: %w", err)
	}

	return pdfBuf, nil
}
