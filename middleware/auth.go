package middleware

import (
	"os"
	"strings"

	"Rishui/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// JWTSecret signs and verifies auth tokens. Overridden by the JWT_SECRET
// environment variable in main.
var JWTSecret = "secret"

func init() {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		JWTSecret = secret
	}
}

// Protect verifies the Bearer token and stores the authenticated user in
// ctx.Locals("user").
func Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "לא מורשה, לא התקבל טוקן",
			})
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
			return []byte(JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "לא מורשה, טוקן לא תקין",
			})
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "לא מורשה, טוקן לא תקין",
			})
		}

		var user Models.User
		if result := Models.DB.Where("id = ?", claims.Subject).First(&user); result.Error != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "המשתמש לא נמצא, ההרשאה נדחתה",
			})
		}

		if !user.IsActive {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "החשבון מושבת, אין הרשאה לפעולה זו",
			})
		}

		c.Locals("user", user)
		return c.Next()
	}
}

// Authorize allows the request through only when the authenticated user has
// one of the given roles. Must run after Protect.
func Authorize(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals("user").(Models.User)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "לא מורשה, משתמש לא מזוהה",
			})
		}

		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "תפקיד המשתמש (" + user.Role + ") אינו מורשה לבצע פעולה זו",
		})
	}
}

// CurrentUser returns the user stored by Protect.
func CurrentUser(c *fiber.Ctx) (Models.User, bool) {
	user, ok := c.Locals("user").(Models.User)
	return user, ok
}
