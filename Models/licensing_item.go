package Models

// Licensing tracks defined by the business licensing regulations.
const (
	TrackRegular    = "regular"
	TrackExpeditedA = "expedited_a"
	TrackExpeditedB = "expedited_b"
	TrackAffidavit  = "affidavit"
)

// LicensingItem is a catalog entry from the licensing regulations,
// for example item 4.2a "מזון - בית אוכל".
type LicensingItem struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	ItemNumber     string `json:"itemNumber" gorm:"uniqueIndex"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	LicensingTrack string `json:"licensingTrack" gorm:"default:regular"`

	// Required approval bodies
	NeedsPoliceApproval                  int `json:"needsPoliceApproval" gorm:"default:0"`
	NeedsFireDeptApproval                int `json:"needsFireDeptApproval" gorm:"default:1"`
	NeedsHealthMinistryApproval          int `json:"needsHealthMinistryApproval" gorm:"default:0"`
	NeedsEnvironmentalProtectionApproval int `json:"needsEnvironmentalProtectionApproval" gorm:"default:0"`
	NeedsAgricultureMinistryApproval     int `json:"needsAgricultureMinistryApproval" gorm:"default:0"`
	NeedsLaborMinistryApproval           int `json:"needsLaborMinistryApproval" gorm:"default:0"`

	ValidityYears int `json:"validityYears" gorm:"default:1"`
}
