package Controllers

import (
	"fmt"
	"time"

	"Rishui/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

var reportStatusLabels = map[string]string{
	Models.ReportStatusPass:            "תקין",
	Models.ReportStatusFail:            "לא תקין",
	Models.ReportStatusConditionalPass: "תקין בתנאים",
}

// ExportReports builds an Excel workbook of all inspection reports.
// GET /api/reports/export
func (rc *ReportController) ExportReports(c *fiber.Ctx) error {
	var reports []Models.Report
	err := rc.DB.
		Preload("Business").
		Preload("Inspector").
		Order("visit_date DESC").
		Find(&reports).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת בקבלת הדו\"חות",
			"error":   err.Error(),
		})
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "דוחות ביקורת"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה ביצירת קובץ אקסל",
			"error":   err.Error(),
		})
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"מס' דו\"ח", "תאריך ביקורת", "שם העסק", "כתובת", "מפקח", "סטטוס", "ממצאים", "רמת סיכון"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, report := range reports {
		status := report.Status
		if label, ok := reportStatusLabels[status]; ok {
			status = label
		}
		risk := ""
		if assessment := report.RiskAssessment(); assessment != nil {
			risk = assessment.RiskLevel
		}

		values := []interface{}{
			report.ID,
			report.VisitDate.Format("02/01/2006"),
			report.Business.BusinessName,
			report.Business.Address,
			report.Inspector.FullName,
			status,
			report.Findings,
			risk,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה ביצירת קובץ אקסל",
			"error":   err.Error(),
		})
	}

	fileName := fmt.Sprintf("reports_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	return c.Send(buf.Bytes())
}
