package Controllers

import (
	"strconv"

	"Rishui/Models"

	"github.com/gofiber/fiber/v2"
)

// GetLicensingItems lists the licensing catalog, optionally filtered by a
// free-text search over item number and name.
// GET /api/licensing-items
func GetLicensingItems(c *fiber.Ctx) error {
	query := Models.DB.Model(&Models.LicensingItem{})

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("item_number LIKE ? OR name LIKE ?", like, like)
	}

	var items []Models.LicensingItem
	if err := query.Order("item_number ASC").Find(&items).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת בקבלת פריטי הרישוי",
			"error":   err.Error(),
		})
	}
	return c.JSON(items)
}

// GetLicensingItem returns a single catalog entry.
// GET /api/licensing-items/:id
func GetLicensingItem(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה פריט לא תקין",
		})
	}

	var item Models.LicensingItem
	if err := Models.DB.First(&item, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "פריט רישוי לא נמצא",
		})
	}
	return c.JSON(item)
}

// CreateLicensingItem adds a catalog entry, for items missing from the
// scraped regulations.
// POST /api/licensing-items
func CreateLicensingItem(c *fiber.Ctx) error {
	var item Models.LicensingItem
	if err := c.BodyParser(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "גוף הבקשה אינו תקין",
		})
	}

	if item.ItemNumber == "" || item.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "יש למלא מספר פריט ושם",
		})
	}
	if item.LicensingTrack == "" {
		item.LicensingTrack = Models.TrackRegular
	}

	if err := Models.DB.Create(&item).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה ביצירת פריט רישוי",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}
