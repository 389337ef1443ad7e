package Controllers

import (
	"strconv"
	"time"

	"Rishui/Models"
	"Rishui/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

type registerInput struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signToken issues a 12 hour token whose subject is the user id.
func signToken(user Models.User) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(int(user.ID)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(middleware.JWTSecret))
}

// Register creates an inspector account pending admin approval.
// POST /api/auth/register
func Register(c *fiber.Ctx) error {
	var input registerInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "גוף הבקשה אינו תקין",
		})
	}

	if input.FullName == "" || input.Email == "" || len(input.Password) < 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "יש למלא שם מלא, אימייל וסיסמה באורך 6 תווים לפחות",
		})
	}

	var existing Models.User
	if result := Models.DB.Where("email = ?", input.Email).First(&existing); result.Error == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "כתובת האימייל כבר רשומה במערכת",
		})
	}

	user := Models.User{
		FullName:    input.FullName,
		Email:       input.Email,
		PhoneNumber: input.PhoneNumber,
		Role:        Models.RoleInspector,
		IsActive:    true,
		IsApproved:  false,
	}
	if err := user.SetPassword(input.Password); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת",
		})
	}

	if err := Models.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאה ביצירת משתמש",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "ההרשמה התקבלה וממתינה לאישור מנהל",
		"user":    user,
	})
}

// Login verifies credentials and returns a bearer token.
// POST /api/auth/login
func Login(c *fiber.Ctx) error {
	var input loginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "גוף הבקשה אינו תקין",
		})
	}

	var user Models.User
	if result := Models.DB.Where("email = ?", input.Email).First(&user); result.Error != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "אימייל או סיסמה שגויים",
		})
	}

	if !user.MatchPassword(input.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "אימייל או סיסמה שגויים",
		})
	}

	if !user.IsApproved {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "החשבון ממתין לאישור מנהל",
		})
	}

	if !user.IsActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "החשבון מושבת, יש לפנות למנהל המערכת",
		})
	}

	token, err := signToken(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "שגיאת שרת",
		})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

// Me returns the authenticated user.
// GET /api/auth/me
func Me(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "לא מורשה, משתמש לא מזוהה",
		})
	}
	return c.JSON(user)
}
