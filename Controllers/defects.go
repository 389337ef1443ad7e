package Controllers

import (
	"strconv"

	"Rishui/Models"

	"github.com/gofiber/fiber/v2"
)

// GetDefects lists the inspection defect catalog, grouped for the client by
// category ordering.
// GET /api/defects
func GetDefects(c *fiber.Ctx) error {
	query := Models.DB.Model(&Models.InspectionDefect{})

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var defects []Models.InspectionDefect
	if err := query.Order("category ASC, subject ASC").Find(&defects).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת בקבלת רשימת הליקויים",
			"error":   err.Error(),
		})
	}
	return c.JSON(defects)
}

// CreateDefect adds a catalog defect.
// POST /api/defects
func CreateDefect(c *fiber.Ctx) error {
	var defect Models.InspectionDefect
	if err := c.BodyParser(&defect); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "גוף הבקשה אינו תקין",
		})
	}

	if defect.Category == "" || defect.Subject == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "יש למלא קטגוריה ונושא",
		})
	}

	if err := Models.DB.Create(&defect).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה ביצירת ליקוי",
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(defect)
}

// DeleteDefect removes a catalog defect.
// DELETE /api/defects/:id
func DeleteDefect(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה ליקוי לא תקין",
		})
	}

	result := Models.DB.Delete(&Models.InspectionDefect{}, id)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת",
			"error":   result.Error.Error(),
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "ליקוי לא נמצא",
		})
	}

	return c.JSON(fiber.Map{
		"message": "הליקוי נמחק בהצלחה",
	})
}
