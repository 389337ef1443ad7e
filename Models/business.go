package Models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Business represents a business entity applying for or holding a license.
type Business struct {
	gorm.Model
	BusinessName string `json:"businessName"`
	Address      string `json:"address"`
	OwnerName    string `json:"ownerName"`
	OwnerID      string `json:"ownerId"`
	ContactPhone string `json:"contactPhone"`
	Email        string `json:"email"`

	// Licensing file details
	FileNumber     string     `json:"fileNumber" gorm:"index"`
	LicenseNumber  string     `json:"licenseNumber" gorm:"index"`
	Status         string     `json:"status" gorm:"default:application_submitted"`
	IssueDate      *time.Time `json:"issueDate"`
	ExpirationDate *time.Time `json:"expirationDate"`

	// Licensing items attached to the file. LicensingItemID keeps the legacy
	// single-item reference, LicensingItemIDs carries the full list.
	LicensingItemID    *uint          `json:"licensingItemId"`
	LicensingItemIDs   datatypes.JSON `json:"licensingItemIds,omitempty"`
	RegulatorApprovals datatypes.JSON `json:"regulatorApprovals,omitempty"`

	// Map coordinates
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	Reports []Report `json:"reports,omitempty" gorm:"foreignKey:BusinessID"`
}
