package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/odontobb/odontobb/app/models"
	"github.com/odontobb/odontobb/internal/pkg/database"
	"github.com/odontobb/odontobb/internal/pkg/session"
	"github.com/odontobb/odontobb/internal/pkg/usercontext"
)

// UserContextMiddleware resolves the session into a UserContext stored in
// Locals so controllers never touch the session store directly.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userIDStr := session.GetSessionValue(c, usercontext.KeyUserID)
		if userIDStr == "" {
			c.Locals(usercontext.KeyFromProtected, false)
			return c.Next()
		}

		userID, err := strconv.ParseUint(userIDStr, 10, 64)
		if err != nil || userID == 0 {
			c.Locals(usercontext.KeyFromProtected, false)
			return c.Next()
		}

		var user models.User
		if err := database.GetDB().First(&user, uint(userID)).Error; err != nil {
			c.Locals(usercontext.KeyFromProtected, false)
			return c.Next()
		}

		userCtx := usercontext.UserContext{
			UserID:     user.ID,
			Username:   user.Name,
			IsLoggedIn: true,
			IsAdmin:    user.Role == models.ROLE_ADMIN,
		}
		c.Locals("USER_CONTEXT", userCtx)
		c.Locals(usercontext.KeyFromProtected, true)
		c.Locals(usercontext.KeyUserID, user.ID)
		c.Locals(usercontext.KeyUsername, user.Name)
		c.Locals(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)

		return c.Next()
	}
}
