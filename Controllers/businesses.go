package Controllers

import (
	"encoding/json"
	"strconv"
	"time"

	"Rishui/Models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
)

// businessResponse serializes a business with its status normalized and the
// Hebrew display label attached.
type businessResponse struct {
	Models.Business
	Status      string `json:"status"`
	StatusLabel string `json:"statusLabel"`
}

func newBusinessResponse(b Models.Business) businessResponse {
	status := Models.NormalizeBusinessStatus(b.Status)
	if status == "" {
		status = "application_submitted"
	}
	return businessResponse{
		Business:    b,
		Status:      status,
		StatusLabel: Models.BusinessStatusLabel(status),
	}
}

type businessInput struct {
	BusinessName       string          `json:"businessName"`
	Address            string          `json:"address"`
	OwnerName          string          `json:"ownerName"`
	OwnerID            string          `json:"ownerId"`
	ContactPhone       string          `json:"contactPhone"`
	Email              string          `json:"email"`
	FileNumber         string          `json:"fileNumber"`
	LicenseNumber      string          `json:"licenseNumber"`
	Status             string          `json:"status"`
	IssueDate          *time.Time      `json:"issueDate"`
	ExpirationDate     *time.Time      `json:"expirationDate"`
	LicensingItemID    *uint           `json:"licensingItemId"`
	LicensingItemIDs   []uint          `json:"licensingItemIds"`
	RegulatorApprovals json.RawMessage `json:"regulatorApprovals"`
	Latitude           *float64        `json:"latitude"`
	Longitude          *float64        `json:"longitude"`
}

// GetAllBusinesses lists businesses, optionally filtered by status or a
// free-text search over name, owner and file number.
// GET /api/businesses
func GetAllBusinesses(c *fiber.Ctx) error {
	query := Models.DB.Model(&Models.Business{})

	if status := c.Query("status"); status != "" {
		canonical := Models.NormalizeBusinessStatus(status)
		if canonical == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "סטטוס לא מוכר: " + status,
			})
		}
		query = query.Where("status = ?", canonical)
	}

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"business_name LIKE ? OR owner_name LIKE ? OR file_number LIKE ?",
			like, like, like,
		)
	}

	var businesses []Models.Business
	if err := query.Order("business_name ASC").Find(&businesses).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת בקבלת רשימת העסקים",
			"error":   err.Error(),
		})
	}

	responses := make([]businessResponse, 0, len(businesses))
	for _, b := range businesses {
		responses = append(responses, newBusinessResponse(b))
	}
	return c.JSON(responses)
}

// GetBusiness returns one business with its report history.
// GET /api/businesses/:id
func GetBusiness(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה עסק לא תקין",
		})
	}

	var business Models.Business
	if err := Models.DB.Preload("Reports").First(&business, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "עסק לא נמצא",
		})
	}
	return c.JSON(newBusinessResponse(business))
}

// CreateBusiness registers a new business file.
// POST /api/businesses
func CreateBusiness(c *fiber.Ctx) error {
	var input businessInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "גוף הבקשה אינו תקין",
		})
	}

	if input.BusinessName == "" || input.Address == "" || input.OwnerName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "יש למלא שם עסק, כתובת ושם בעלים",
		})
	}

	status := "application_submitted"
	if input.Status != "" {
		if canonical := Models.NormalizeBusinessStatus(input.Status); canonical != "" {
			status = canonical
		}
	}

	business := Models.Business{
		BusinessName:    input.BusinessName,
		Address:         input.Address,
		OwnerName:       input.OwnerName,
		OwnerID:         input.OwnerID,
		ContactPhone:    input.ContactPhone,
		Email:           input.Email,
		FileNumber:      input.FileNumber,
		LicenseNumber:   input.LicenseNumber,
		Status:          status,
		IssueDate:       input.IssueDate,
		ExpirationDate:  input.ExpirationDate,
		LicensingItemID: input.LicensingItemID,
		Latitude:        input.Latitude,
		Longitude:       input.Longitude,
	}
	if len(input.LicensingItemIDs) > 0 {
		if raw, err := json.Marshal(input.LicensingItemIDs); err == nil {
			business.LicensingItemIDs = datatypes.JSON(raw)
		}
	}
	if len(input.RegulatorApprovals) > 0 {
		business.RegulatorApprovals = datatypes.JSON(input.RegulatorApprovals)
	}

	if err := Models.DB.Create(&business).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה ביצירת עסק",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(newBusinessResponse(business))
}

// UpdateBusiness updates the fields present in the request body.
// PUT /api/businesses/:id
func UpdateBusiness(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה עסק לא תקין",
		})
	}

	var business Models.Business
	if err := Models.DB.First(&business, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "עסק לא נמצא",
		})
	}

	var input map[string]json.RawMessage
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "גוף הבקשה אינו תקין",
		})
	}

	updates := map[string]interface{}{}
	setString := func(key, column string) error {
		raw, ok := input[key]
		if !ok {
			return nil
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return err
		}
		updates[column] = value
		return nil
	}

	for key, column := range map[string]string{
		"businessName":  "business_name",
		"address":       "address",
		"ownerName":     "owner_name",
		"ownerId":       "owner_id",
		"contactPhone":  "contact_phone",
		"email":         "email",
		"fileNumber":    "file_number",
		"licenseNumber": "license_number",
	} {
		if err := setString(key, column); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "ערך לא תקין בשדה " + key,
			})
		}
	}

	if raw, ok := input["status"]; ok {
		var status string
		if err := json.Unmarshal(raw, &status); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "ערך לא תקין בשדה status",
			})
		}
		canonical := Models.NormalizeBusinessStatus(status)
		if canonical == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "סטטוס לא מוכר: " + status,
			})
		}
		updates["status"] = canonical
	}

	for key, column := range map[string]string{
		"issueDate":      "issue_date",
		"expirationDate": "expiration_date",
	} {
		if raw, ok := input[key]; ok {
			var value *time.Time
			if err := json.Unmarshal(raw, &value); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"message": "ערך לא תקין בשדה " + key,
				})
			}
			updates[column] = value
		}
	}

	if raw, ok := input["regulatorApprovals"]; ok {
		updates["regulator_approvals"] = datatypes.JSON(raw)
	}
	if raw, ok := input["licensingItemIds"]; ok {
		updates["licensing_item_ids"] = datatypes.JSON(raw)
	}

	if len(updates) > 0 {
		if err := Models.DB.Model(&business).Updates(updates).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "שגיאה בעדכון עסק",
				"error":   err.Error(),
			})
		}
	}

	Models.DB.First(&business, id)
	return c.JSON(newBusinessResponse(business))
}

// UpdateBusinessStatus patches only the lifecycle status.
// PATCH /api/businesses/:id/status
func UpdateBusinessStatus(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה עסק לא תקין",
		})
	}

	var business Models.Business
	if err := Models.DB.First(&business, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "עסק לא נמצא",
		})
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "גוף הבקשה אינו תקין",
		})
	}

	canonical := Models.NormalizeBusinessStatus(input.Status)
	if canonical == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "סטטוס לא מוכר: " + input.Status,
		})
	}

	if err := Models.DB.Model(&business).Update("status", canonical).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה בעדכון סטטוס",
			"error":   err.Error(),
		})
	}

	return c.JSON(newBusinessResponse(business))
}

// UpdateBusinessLocation patches only the map coordinates.
// PATCH /api/businesses/:id/location
func UpdateBusinessLocation(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה עסק לא תקין",
		})
	}

	var business Models.Business
	if err := Models.DB.First(&business, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "עסק לא נמצא",
		})
	}

	var input struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := c.BodyParser(&input); err != nil || input.Latitude == nil || input.Longitude == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "יש לציין latitude ו-longitude",
		})
	}
	if *input.Latitude < -90 || *input.Latitude > 90 || *input.Longitude < -180 || *input.Longitude > 180 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "קואורדינטות מחוץ לטווח",
		})
	}

	err = Models.DB.Model(&business).Updates(map[string]interface{}{
		"latitude":  *input.Latitude,
		"longitude": *input.Longitude,
	}).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה בעדכון מיקום",
			"error":   err.Error(),
		})
	}

	return c.JSON(newBusinessResponse(business))
}

// DeleteBusiness removes a business and its reports.
// DELETE /api/businesses/:id
func DeleteBusiness(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה עסק לא תקין",
		})
	}

	var business Models.Business
	if err := Models.DB.First(&business, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "עסק לא נמצא",
		})
	}

	if err := Models.DB.Where("business_id = ?", business.ID).Delete(&Models.Report{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה במחיקת דו\"חות העסק",
			"error":   err.Error(),
		})
	}

	if err := Models.DB.Delete(&business).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה במחיקת עסק",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "העסק נמחק בהצלחה",
	})
}

// GetStatusOptions exposes the canonical status codes with their labels for
// client dropdowns.
// GET /api/businesses/statuses
func GetStatusOptions(c *fiber.Ctx) error {
	type option struct {
		Code  string `json:"code"`
		Label string `json:"label"`
	}
	options := make([]option, 0, len(Models.CanonicalStatusCodes))
	for _, code := range Models.CanonicalStatusCodes {
		options = append(options, option{Code: code, Label: Models.BusinessStatusLabel(code)})
	}
	return c.JSON(options)
}
