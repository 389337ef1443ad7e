package Controllers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"
	"time"

	"Rishui/Models"
	"Rishui/Pdf"
	"Rishui/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type analyzerFunc func(ctx context.Context, findings string) (*Models.RiskAssessment, error)

func (f analyzerFunc) AnalyzeFindings(ctx context.Context, findings string) (*Models.RiskAssessment, error) {
	return f(ctx, findings)
}

type rendererFunc func(ctx context.Context, data Pdf.ReportData) ([]byte, error)

func (f rendererFunc) RenderReport(ctx context.Context, data Pdf.ReportData) ([]byte, error) {
	return f(ctx, data)
}

func okAnalyzer(ctx context.Context, findings string) (*Models.RiskAssessment, error) {
	return &Models.RiskAssessment{
		RiskLevel:       Models.RiskMedium,
		Summary:         "סיכום",
		Recommendations: []string{"המלצה"},
	}, nil
}

func okRenderer(ctx context.Context, data Pdf.ReportData) ([]byte, error) {
	return []byte("%PDF-1.4 test"), nil
}

type reportTestEnv struct {
	app       *fiber.App
	db        *gorm.DB
	token     string
	inspector Models.User
	business  Models.Business
}

func setupReportTest(t *testing.T, analyzer RiskAnalyzer, renderer DocumentRenderer, cfg ReportConfig) *reportTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	Models.Migrate(db)

	prevDB := Models.DB
	Models.DB = db
	t.Cleanup(func() { Models.DB = prevDB })

	inspector := Models.User{
		FullName:   "דנה כהן",
		Email:      "dana@test.local",
		Role:       Models.RoleInspector,
		IsActive:   true,
		IsApproved: true,
	}
	require.NoError(t, inspector.SetPassword("secret123"))
	require.NoError(t, db.Create(&inspector).Error)

	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(int(inspector.ID)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(middleware.JWTSecret))
	require.NoError(t, err)

	business := Models.Business{
		BusinessName: "מסעדת הגבעה",
		Address:      "רחוב הראשי 1",
		OwnerName:    "יוסי לוי",
		OwnerID:      "123456789",
		Status:       "approved",
	}
	require.NoError(t, db.Create(&business).Error)

	if cfg.PublicDir == "" {
		cfg.PublicDir = t.TempDir()
	}
	rc := NewReportController(db, analyzer, renderer, cfg)

	app := fiber.New()
	app.Post("/api/reports", middleware.Protect(), rc.CreateReport)
	app.Get("/api/reports/:id", middleware.Protect(), rc.GetReport)

	return &reportTestEnv{app: app, db: db, token: token, inspector: inspector, business: business}
}

func (env *reportTestEnv) postReport(t *testing.T, body interface{}) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.token)

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeReport(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var body struct {
		Message string                 `json:"message"`
		Report  map[string]interface{} `json:"report"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Message)
	return body.Report
}

func TestCreateReportFullPipeline(t *testing.T) {
	env := setupReportTest(t, analyzerFunc(okAnalyzer), rendererFunc(okRenderer), ReportConfig{})

	resp := env.postReport(t, fiber.Map{
		"businessId": env.business.ID,
		"findings":   "מטפי כיבוי חסרים בקומת הקרקע",
		"status":     "fail",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	report := decodeReport(t, resp)
	require.EqualValues(t, env.business.ID, report["businessId"])
	require.EqualValues(t, env.inspector.ID, report["inspectorId"])
	require.Equal(t, "fail", report["status"])

	visitDate, err := time.Parse(time.RFC3339, report["visitDate"].(string))
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), visitDate, time.Minute)

	require.NotNil(t, report["aiRiskAssessment"])

	assessment, ok := report["aiRiskAssessment"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, Models.RiskMedium, assessment["riskLevel"])

	pdfPath, _ := report["pdfPath"].(string)
	require.Regexp(t, regexp.MustCompile(`^/reports/report_\d+_\d+\.pdf$`), pdfPath)
}

func TestCreateReportWithoutEnrichment(t *testing.T) {
	env := setupReportTest(t, nil, nil, ReportConfig{})

	resp := env.postReport(t, fiber.Map{
		"businessId": env.business.ID,
		"findings":   "העסק נמצא תקין",
		"status":     "pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	report := decodeReport(t, resp)
	require.Nil(t, report["aiRiskAssessment"])
	require.Nil(t, report["pdfPath"])
}

func TestCreateReportSlowAnalyzerTimesOut(t *testing.T) {
	slow := analyzerFunc(func(ctx context.Context, findings string) (*Models.RiskAssessment, error) {
		select {
		case <-time.After(time.Second):
			return okAnalyzer(ctx, findings)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	env := setupReportTest(t, slow, nil, ReportConfig{EnrichmentTimeout: 50 * time.Millisecond})

	start := time.Now()
	resp := env.postReport(t, fiber.Map{
		"businessId": env.business.ID,
		"findings":   "ליקויי בטיחות חמורים",
		"status":     "fail",
	})
	elapsed := time.Since(start)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Less(t, elapsed, 800*time.Millisecond)

	report := decodeReport(t, resp)
	require.Nil(t, report["aiRiskAssessment"])
}

func TestCreateReportRendererFailureIsNotFatal(t *testing.T) {
	failing := rendererFunc(func(ctx context.Context, data Pdf.ReportData) ([]byte, error) {
		return nil, fmt.Errorf("chromium crashed")
	})
	env := setupReportTest(t, nil, failing, ReportConfig{})

	resp := env.postReport(t, fiber.Map{
		"businessId": env.business.ID,
		"findings":   "העסק נמצא תקין",
		"status":     "pass",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	report := decodeReport(t, resp)
	require.Nil(t, report["pdfPath"])
}

func TestCreateReportUnknownBusiness(t *testing.T) {
	env := setupReportTest(t, nil, nil, ReportConfig{})

	resp := env.postReport(t, fiber.Map{
		"businessId": 99999,
		"findings":   "ממצאים",
		"status":     "fail",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var count int64
	env.db.Model(&Models.Report{}).Count(&count)
	require.Zero(t, count)
}

func TestCreateReportMissingBusinessIdentification(t *testing.T) {
	env := setupReportTest(t, nil, nil, ReportConfig{})

	resp := env.postReport(t, fiber.Map{
		"findings": "ממצאים",
		"status":   "fail",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateReportRequiresFindingsOrDefects(t *testing.T) {
	env := setupReportTest(t, nil, nil, ReportConfig{})

	resp := env.postReport(t, fiber.Map{
		"businessId": env.business.ID,
		"status":     "fail",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.postReport(t, fiber.Map{
		"businessId": env.business.ID,
		"status":     "fail",
		"defects": []fiber.Map{
			{"id": 1, "subject": "מטף חסר", "notes": "בקומת הקרקע"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestCreateReportInvalidStatus(t *testing.T) {
	env := setupReportTest(t, nil, nil, ReportConfig{})

	resp := env.postReport(t, fiber.Map{
		"businessId": env.business.ID,
		"findings":   "ממצאים",
		"status":     "maybe",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateReportAdHocBusiness(t *testing.T) {
	env := setupReportTest(t, nil, nil, ReportConfig{})

	payload := fiber.Map{
		"findings": "עסק חדש שנמצא בסיור",
		"status":   "fail",
		"businessData": fiber.Map{
			"businessName": "קיוסק השדרה",
			"address":      "שדרות הדקל 5",
			"ownerName":    "רון אברהם",
			"ownerId":      "987654321",
			"contactPhone": "050-1234567",
		},
	}

	resp := env.postReport(t, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created Models.Business
	require.NoError(t, env.db.First(&created, "business_name = ?", "קיוסק השדרה").Error)
	require.Equal(t, "application_submitted", created.Status)
	require.Equal(t, "רון אברהם", created.OwnerName)
	require.Equal(t, "987654321", created.OwnerID)
	require.Equal(t, "שדרות הדקל 5", created.Address)
	require.Equal(t, "050-1234567", created.ContactPhone)

	// A second submission with the same identifying fields must reuse the
	// business instead of creating a duplicate.
	resp = env.postReport(t, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var count int64
	env.db.Model(&Models.Business{}).Where("business_name = ?", "קיוסק השדרה").Count(&count)
	require.EqualValues(t, 1, count)

	var reports int64
	env.db.Model(&Models.Report{}).Where("business_id = ?", created.ID).Count(&reports)
	require.EqualValues(t, 2, reports)
}

func TestCreateReportAdHocBusinessMissingFields(t *testing.T) {
	env := setupReportTest(t, nil, nil, ReportConfig{})

	resp := env.postReport(t, fiber.Map{
		"findings": "ממצאים",
		"status":   "fail",
		"businessData": fiber.Map{
			"businessName": "עסק ללא כתובת",
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func signatureDataURL(t *testing.T) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestStoreSignaturesPersistsPaths(t *testing.T) {
	env := setupReportTest(t, nil, nil, ReportConfig{})
	rc := NewReportController(env.db, nil, nil, ReportConfig{PublicDir: t.TempDir()})

	report := Models.Report{
		BusinessID:  env.business.ID,
		InspectorID: env.inspector.ID,
		VisitDate:   time.Now(),
		Findings:    "ממצאים",
		Status:      "fail",
	}
	require.NoError(t, env.db.Create(&report).Error)

	rc.storeSignatures(&report, CreateReportRequest{
		InspectorSignature: signatureDataURL(t),
		OwnerSignature:     "REFUSED",
	})

	var stored Models.Report
	require.NoError(t, env.db.First(&stored, report.ID).Error)
	require.Equal(t, fmt.Sprintf("/signatures/report_%d_inspector.png", report.ID), stored.InspectorSignaturePath)
	require.True(t, stored.OwnerRefusedSign)
	require.Empty(t, stored.OwnerSignaturePath)
}

func TestStoreSignaturesStorageFailureIsNotFatal(t *testing.T) {
	env := setupReportTest(t, nil, nil, ReportConfig{})
	rc := NewReportController(env.db, nil, nil, ReportConfig{PublicDir: t.TempDir()})

	report := Models.Report{
		BusinessID:  env.business.ID,
		InspectorID: env.inspector.ID,
		VisitDate:   time.Now(),
		Findings:    "ממצאים",
		Status:      "fail",
	}
	require.NoError(t, env.db.Create(&report).Error)

	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	// Must log and return without propagating the storage error.
	rc.storeSignatures(&report, CreateReportRequest{InspectorSignature: signatureDataURL(t)})
}

func TestCreateReportRequiresAuth(t *testing.T) {
	env := setupReportTest(t, nil, nil, ReportConfig{})

	raw, _ := json.Marshal(fiber.Map{
		"businessId": env.business.ID,
		"findings":   "ממצאים",
		"status":     "fail",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/reports", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
