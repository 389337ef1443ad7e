package Models

// InspectionDefect is a static catalog entry inspectors attach to reports,
// for example a fire safety or sanitation defect with its legal context.
type InspectionDefect struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Category    string `json:"category"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}
