package Models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Report status values.
const (
	ReportStatusPass            = "pass"
	ReportStatusFail            = "fail"
	ReportStatusConditionalPass = "conditional_pass"
)

// Risk levels produced by the AI assessment.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// RiskAssessment is the structured result of the AI risk analysis stage.
type RiskAssessment struct {
	RiskLevel       string   `json:"riskLevel"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

// Report stores the result of a business inspection visit.
type Report struct {
	gorm.Model
	BusinessID  uint      `json:"businessId"`
	InspectorID uint      `json:"inspectorId"`
	VisitDate   time.Time `json:"visitDate"`
	Findings    string    `json:"findings"`
	Status      string    `json:"status" gorm:"default:fail"` // pass | fail | conditional_pass

	// Defects selected from the catalog at inspection time, with free notes.
	Defects datatypes.JSON `json:"defects,omitempty"`

	// Filled in by the best-effort stages of report creation.
	AIRiskAssessment datatypes.JSON `json:"aiRiskAssessment,omitempty"`
	PdfPath          string         `json:"pdfPath,omitempty"`

	// Signature images captured on the inspection form.
	InspectorSignaturePath string `json:"inspectorSignaturePath,omitempty"`
	OwnerSignaturePath     string `json:"ownerSignaturePath,omitempty"`
	OwnerRefusedSign       bool   `json:"ownerRefusedSign"`

	Business  Business `json:"business,omitempty" gorm:"foreignKey:BusinessID"`
	Inspector User     `json:"inspector,omitempty" gorm:"foreignKey:InspectorID"`
}

// SetRiskAssessment stores the structured assessment on the JSON column.
func (r *Report) SetRiskAssessment(a RiskAssessment) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return err
	}
	r.AIRiskAssessment = datatypes.JSON(raw)
	return nil
}

// RiskAssessment decodes the stored assessment, or returns nil when the
// enrichment stage never completed for this report.
func (r *Report) RiskAssessment() *RiskAssessment {
	if len(r.AIRiskAssessment) == 0 {
		return nil
	}
	var a RiskAssessment
	if err := json.Unmarshal(r.AIRiskAssessment, &a); err != nil {
		return nil
	}
	return &a
}
