package Controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"Rishui/Models"
	"Rishui/Pdf"
	"Rishui/Utils"
	"Rishui/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RiskAnalyzer is the stage-3 enrichment backend. A nil analyzer disables
// the stage.
type RiskAnalyzer interface {
	AnalyzeFindings(ctx context.Context, findings string) (*Models.RiskAssessment, error)
}

// DocumentRenderer is the stage-4 rendering backend. A nil renderer disables
// the stage.
type DocumentRenderer interface {
	RenderReport(ctx context.Context, data Pdf.ReportData) ([]byte, error)
}

// ReportConfig carries the explicit configuration of the report creation
// pipeline instead of reading ambient process state.
type ReportConfig struct {
	// PublicDir is the root of the statically served artifact tree; PDFs go
	// under PublicDir/reports, signatures under PublicDir/signatures.
	PublicDir string
	// EnrichmentTimeout bounds how long stage 3 waits for the AI backend.
	EnrichmentTimeout time.Duration
	// RenderTimeout bounds how long stage 4 waits for document rendering.
	RenderTimeout time.Duration
}

func (cfg ReportConfig) withDefaults() ReportConfig {
	if cfg.PublicDir == "" {
		cfg.PublicDir = "./public"
	}
	if cfg.EnrichmentTimeout <= 0 {
		cfg.EnrichmentTimeout = 15 * time.Second
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 25 * time.Second
	}
	return cfg
}

// ReportController handles inspection report endpoints.
type ReportController struct {
	DB       *gorm.DB
	Analyzer RiskAnalyzer
	Renderer DocumentRenderer
	Cfg      ReportConfig

	validate *validator.Validate
}

// NewReportController creates a ReportController. Analyzer and renderer may
// be nil, which turns the matching best-effort stage off.
func NewReportController(db *gorm.DB, analyzer RiskAnalyzer, renderer DocumentRenderer, cfg ReportConfig) *ReportController {
	return &ReportController{
		DB:       db,
		Analyzer: analyzer,
		Renderer: renderer,
		Cfg:      cfg.withDefaults(),
		validate: validator.New(),
	}
}

// BusinessPayload is the embedded business data used for ad hoc creation
// when no businessId is supplied.
type BusinessPayload struct {
	BusinessName       string          `json:"businessName" validate:"required"`
	Address            string          `json:"address" validate:"required"`
	OwnerName          string          `json:"ownerName" validate:"required"`
	OwnerID            string          `json:"ownerId"`
	ContactPhone       string          `json:"contactPhone" validate:"required"`
	Email              string          `json:"email" validate:"omitempty,email"`
	LicensingItemID    *uint           `json:"licensingItemId"`
	LicensingItemIDs   []uint          `json:"licensingItemIds"`
	RegulatorApprovals json.RawMessage `json:"regulatorApprovals"`
	Latitude           *float64        `json:"latitude"`
	Longitude          *float64        `json:"longitude"`
}

// DefectEntry is one catalog defect selected on the inspection form.
type DefectEntry struct {
	ID          uint   `json:"id"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
}

// CreateReportRequest is the report submission payload.
type CreateReportRequest struct {
	BusinessID         *uint            `json:"businessId"`
	Findings           string           `json:"findings"`
	Status             string           `json:"status" validate:"required,oneof=pass fail conditional_pass"`
	Defects            []DefectEntry    `json:"defects"`
	InspectorSignature string           `json:"inspectorSignature"`
	OwnerSignature     string           `json:"ownerSignature"`
	OwnerRefusedSign   bool             `json:"ownerRefusedSign"`
	RegulatorsData     json.RawMessage  `json:"regulatorsData"`
	BusinessData       *BusinessPayload `json:"businessData"`
}

var (
	errBusinessNotFound = errors.New("business not found")
	errMissingBusiness  = errors.New("missing business identification")
	errBusinessRejected = errors.New("business creation rejected")
)

// CreateReport drives the five-stage report creation pipeline:
// resolve/create business and persist the report inside one transaction,
// then best-effort AI risk enrichment and PDF generation, then respond.
// POST /api/reports
func (rc *ReportController) CreateReport(c *fiber.Ctx) error {
	inspector, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "לא מורשה, משתמש לא מזוהה",
		})
	}

	var req CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "גוף הבקשה אינו תקין",
			"error":   err.Error(),
		})
	}

	if err := rc.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "נתוני הדו\"ח אינם תקינים",
			"error":   err.Error(),
		})
	}

	// Findings are required unless at least one structured defect is attached.
	if req.Findings == "" && len(req.Defects) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "יש להזין ממצאים או להוסיף לפחות ליקוי אחד",
		})
	}

	// ===== Stages 1+2: resolve business and persist the report =====
	// This transaction is the operation's atomicity boundary; everything
	// after it is best-effort decoration.
	var report Models.Report
	txErr := rc.DB.Transaction(func(tx *gorm.DB) error {
		businessID, err := rc.resolveBusiness(tx, &req)
		if err != nil {
			return err
		}

		report = Models.Report{
			BusinessID:       businessID,
			InspectorID:      inspector.ID,
			VisitDate:        time.Now(),
			Findings:         req.Findings,
			Status:           req.Status,
			OwnerRefusedSign: req.OwnerRefusedSign,
		}
		if len(req.Defects) > 0 {
			raw, marshalErr := json.Marshal(req.Defects)
			if marshalErr != nil {
				return marshalErr
			}
			report.Defects = datatypes.JSON(raw)
		}

		return tx.Create(&report).Error
	})
	if txErr != nil {
		switch {
		case errors.Is(txErr, errBusinessNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "עסק לא נמצא",
			})
		case errors.Is(txErr, errMissingBusiness):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "חסר זיהוי עסק: יש לציין businessId או businessData",
			})
		case errors.Is(txErr, errBusinessRejected):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "שגיאה ביצירת עסק חדש",
				"error":   txErr.Error(),
			})
		default:
			log.Println("Error creating report:", txErr)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "שגיאה ביצירת דו\"ח",
				"error":   txErr.Error(),
			})
		}
	}

	// Store signature images for the record and the printed document.
	// Failures only cost the images, never the report.
	rc.storeSignatures(&report, req)

	// ===== Stage 3: AI risk enrichment (best-effort) =====
	if report.Findings != "" && rc.Analyzer != nil {
		assessment, err := Utils.RunWithTimeout(context.Background(), rc.Cfg.EnrichmentTimeout,
			func(ctx context.Context) (*Models.RiskAssessment, error) {
				return rc.Analyzer.AnalyzeFindings(ctx, report.Findings)
			})
		if err != nil {
			log.Printf("AI analysis failed for report %d: %v", report.ID, err)
		} else if err := report.SetRiskAssessment(*assessment); err != nil {
			log.Printf("AI analysis failed for report %d: %v", report.ID, err)
		} else if err := rc.DB.Model(&report).Update("ai_risk_assessment", report.AIRiskAssessment).Error; err != nil {
			log.Printf("AI analysis failed for report %d: %v", report.ID, err)
		}
	}

	// ===== Stage 4: PDF generation (best-effort) =====
	if rc.Renderer != nil {
		rc.generatePDF(&report)
	}

	// ===== Stage 5: respond with the (possibly enriched) report =====
	var fresh Models.Report
	if err := rc.DB.First(&fresh, report.ID).Error; err == nil {
		report = fresh
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "הדו\"ח נוצר בהצלחה",
		"report":  report,
	})
}

// resolveBusiness implements stage 1. Inside the submission transaction it
// verifies the referenced business, or resolves-or-creates an ad hoc one so
// concurrent submissions with the same identifying fields cannot
// double-create.
func (rc *ReportController) resolveBusiness(tx *gorm.DB, req *CreateReportRequest) (uint, error) {
	if req.BusinessID != nil {
		var business Models.Business
		if err := tx.First(&business, *req.BusinessID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, errBusinessNotFound
			}
			return 0, err
		}
		return business.ID, nil
	}

	if req.BusinessData == nil {
		return 0, errMissingBusiness
	}

	data := req.BusinessData
	if err := rc.validate.Struct(data); err != nil {
		return 0, fmt.Errorf("%w: %v", errBusinessRejected, err)
	}

	attrs := Models.Business{
		Address:         data.Address,
		OwnerName:       data.OwnerName,
		ContactPhone:    data.ContactPhone,
		Email:           data.Email,
		Status:          "application_submitted",
		LicensingItemID: data.LicensingItemID,
		Latitude:        data.Latitude,
		Longitude:       data.Longitude,
	}
	if len(data.LicensingItemIDs) > 0 {
		if raw, err := json.Marshal(data.LicensingItemIDs); err == nil {
			attrs.LicensingItemIDs = datatypes.JSON(raw)
		}
	}
	if len(data.RegulatorApprovals) > 0 {
		attrs.RegulatorApprovals = datatypes.JSON(data.RegulatorApprovals)
	}

	var business Models.Business
	err := tx.Where(Models.Business{
		BusinessName: data.BusinessName,
		OwnerID:      data.OwnerID,
	}).Attrs(attrs).FirstOrCreate(&business).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errBusinessRejected, err)
	}

	return business.ID, nil
}

// generatePDF implements stage 4: reload the report with its associations,
// render, store the artifact, save the relative path.
func (rc *ReportController) generatePDF(report *Models.Report) {
	var full Models.Report
	if err := rc.DB.Preload("Business").Preload("Inspector").First(&full, report.ID).Error; err != nil {
		log.Printf("PDF generation failed for report %d: %v", report.ID, err)
		return
	}

	pdfBytes, err := Utils.RunWithTimeout(context.Background(), rc.Cfg.RenderTimeout,
		func(ctx context.Context) ([]byte, error) {
			return rc.Renderer.RenderReport(ctx, Pdf.ReportData{
				Report:    full,
				Business:  full.Business,
				Inspector: full.Inspector,
			})
		})
	if err != nil {
		log.Printf("PDF generation failed for report %d: %v", report.ID, err)
		return
	}

	fileName := fmt.Sprintf("report_%d_%d.pdf", report.ID, time.Now().UnixMilli())
	reportsDir := filepath.Join(rc.Cfg.PublicDir, "reports")
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		log.Printf("PDF generation failed for report %d: %v", report.ID, err)
		return
	}
	if err := os.WriteFile(filepath.Join(reportsDir, fileName), pdfBytes, 0644); err != nil {
		log.Printf("PDF generation failed for report %d: %v", report.ID, err)
		return
	}

	report.PdfPath = "/reports/" + fileName
	if err := rc.DB.Model(report).Update("pdf_path", report.PdfPath).Error; err != nil {
		log.Printf("PDF generation failed for report %d: %v", report.ID, err)
	}
}

// GetAllReports returns all reports for the inspection board view.
// GET /api/reports
func (rc *ReportController) GetAllReports(c *fiber.Ctx) error {
	var reports []Models.Report
	err := rc.DB.
		Preload("Business", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "business_name", "address")
		}).
		Preload("Inspector", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "full_name")
		}).
		Order("visit_date DESC").
		Find(&reports).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת בקבלת כל הדו\"חות",
			"error":   err.Error(),
		})
	}
	return c.JSON(reports)
}

// GetReportsByBusiness returns the report history of one business.
// GET /api/reports/business/:businessId
func (rc *ReportController) GetReportsByBusiness(c *fiber.Ctx) error {
	businessID, err := strconv.Atoi(c.Params("businessId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה עסק לא תקין",
		})
	}

	var reports []Models.Report
	err = rc.DB.
		Where("business_id = ?", businessID).
		Preload("Inspector", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "full_name")
		}).
		Order("visit_date DESC").
		Find(&reports).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת",
			"error":   err.Error(),
		})
	}
	return c.JSON(reports)
}

// GetReport returns one report by identifier.
// GET /api/reports/:id
func (rc *ReportController) GetReport(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה דו\"ח לא תקין",
		})
	}

	var report Models.Report
	if err := rc.DB.Preload("Business").Preload("Inspector").First(&report, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "דו\"ח לא נמצא",
		})
	}
	return c.JSON(report)
}

// UpdateReport amends findings/status after creation. Never re-runs the
// enrichment or rendering stages.
// PUT /api/reports/:id
func (rc *ReportController) UpdateReport(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה דו\"ח לא תקין",
		})
	}

	var report Models.Report
	if err := rc.DB.First(&report, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "דו\"ח לא נמצא",
		})
	}

	var input struct {
		Findings *string `json:"findings"`
		Status   *string `json:"status"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "גוף הבקשה אינו תקין",
		})
	}

	updates := map[string]interface{}{}
	if input.Findings != nil {
		updates["findings"] = *input.Findings
	}
	if input.Status != nil {
		switch *input.Status {
		case Models.ReportStatusPass, Models.ReportStatusFail, Models.ReportStatusConditionalPass:
			updates["status"] = *input.Status
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "סטטוס דו\"ח לא תקין",
			})
		}
	}

	if len(updates) > 0 {
		if err := rc.DB.Model(&report).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "שגיאת שרת",
				"error":   err.Error(),
			})
		}
	}

	return c.JSON(fiber.Map{
		"message": "הדו\"ח עודכן בהצלחה",
		"report":  report,
	})
}

// PrintReportView renders the printable report page, the same template the
// PDF stage prints.
// GET /reports/:id/print
func (rc *ReportController) PrintReportView(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה דו\"ח לא תקין",
		})
	}

	var report Models.Report
	if err := rc.DB.Preload("Business").Preload("Inspector").First(&report, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "דו\"ח לא נמצא",
		})
	}

	return c.Render("report", Pdf.TemplateData(rc.Cfg.PublicDir, Pdf.ReportData{
		Report:    report,
		Business:  report.Business,
		Inspector: report.Inspector,
	}))
}
