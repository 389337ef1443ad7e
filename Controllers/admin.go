package Controllers

import (
	"strconv"

	"Rishui/Models"

	"github.com/gofiber/fiber/v2"
)

// GetUsers lists all accounts for the admin panel.
// GET /api/admin/users
func GetUsers(c *fiber.Ctx) error {
	var users []Models.User
	if err := Models.DB.Order("created_at DESC").Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת בקבלת רשימת המשתמשים",
			"error":   err.Error(),
		})
	}
	return c.JSON(users)
}

// ApproveUser approves a pending registration.
// PATCH /api/admin/users/:id/approve
func ApproveUser(c *fiber.Ctx) error {
	user, ok := findUser(c)
	if !ok {
		return nil
	}

	if err := Models.DB.Model(&user).Update("is_approved", true).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "המשתמש אושר בהצלחה",
		"user":    user,
	})
}

// DenyUser removes a registration that was not approved.
// DELETE /api/admin/users/:id
func DenyUser(c *fiber.Ctx) error {
	user, ok := findUser(c)
	if !ok {
		return nil
	}

	if user.IsApproved {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "לא ניתן למחוק משתמש מאושר, יש להשבית אותו",
		})
	}

	if err := Models.DB.Delete(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "הרשמת המשתמש נדחתה",
	})
}

// SetUserActive enables or disables an account.
// PATCH /api/admin/users/:id/active
func SetUserActive(c *fiber.Ctx) error {
	user, ok := findUser(c)
	if !ok {
		return nil
	}

	var input struct {
		IsActive *bool `json:"isActive"`
	}
	if err := c.BodyParser(&input); err != nil || input.IsActive == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "יש לציין isActive",
		})
	}

	if err := Models.DB.Model(&user).Update("is_active", *input.IsActive).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "סטטוס המשתמש עודכן",
		"user":    user,
	})
}

// SetUserRole changes an account role.
// PATCH /api/admin/users/:id/role
func SetUserRole(c *fiber.Ctx) error {
	user, ok := findUser(c)
	if !ok {
		return nil
	}

	var input struct {
		Role string `json:"role"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "גוף הבקשה אינו תקין",
		})
	}

	switch input.Role {
	case Models.RoleInspector, Models.RoleManager, Models.RoleAdmin:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "תפקיד לא מוכר: " + input.Role,
		})
	}

	if err := Models.DB.Model(&user).Update("role", input.Role).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת",
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "תפקיד המשתמש עודכן",
		"user":    user,
	})
}

// findUser resolves the :id path parameter. When it fails it has already
// written the error response and returns ok=false.
func findUser(c *fiber.Ctx) (Models.User, bool) {
	var user Models.User

	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "מזהה משתמש לא תקין",
		})
		return user, false
	}

	if err := Models.DB.First(&user, id).Error; err != nil {
		c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "משתמש לא נמצא",
		})
		return user, false
	}
	return user, true
}
