package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"
	"gorm.io/gorm"

	"github.com/odontobb/odontobb/app/models"
	"github.com/odontobb/odontobb/app/repository"
)

// HandleOAuthBegin redirects the browser into the provider flow.
func HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and logs the user in.
// Accounts are matched by provider id first, then by email; unknown users
// are created on the fly.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(fmt.Sprintf("OAuth failed: %v", err))
	}

	repo := repository.GetGlobalFactory().GetUserRepository()

	appUser, err := repo.GetByOAuth(u.Provider, u.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if u.Email != "" {
			appUser, err = repo.GetByEmail(u.Email)
		}
		if appUser == nil || errors.Is(err, gorm.ErrRecordNotFound) {
			// Password placeholder; OAuth users never log in with it.
			placeholder := fmt.Sprintf("oauth_%d", time.Now().UnixNano())
			hash, _ := models.HashPassword(placeholder)
			email := u.Email
			if email == "" {
				email = fmt.Sprintf("%s_%s@%s.oauth.local", u.Provider, u.UserID, u.Provider)
			}
			appUser = &models.User{
				Name:      firstNonEmpty(u.Name, u.NickName, u.Email, "Paciente"),
				Email:     email,
				Password:  hash,
				AvatarURL: u.AvatarURL,
				Role:      models.ROLE_USER,
				Status:    models.STATUS_ACTIVE,
			}
			if err := repo.Create(appUser); err != nil {
				return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("create user failed: %v", err))
			}
		}
		appUser.OAuthProvider = u.Provider
		appUser.OAuthID = u.UserID
		if err := repo.Update(appUser); err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("link provider failed: %v", err))
		}
	} else if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(fmt.Sprintf("db error: %v", err))
	}

	if err := openSession(c, appUser); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("session save failed")
	}

	now := time.Now()
	appUser.LastLoginAt = &now
	if err := repo.Update(appUser); err != nil {
		log.Warnf("last login update failed for user %d: %v", appUser.ID, err)
	}

	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleOAuthLogout clears the provider session before the app logout.
func HandleOAuthLogout(c *fiber.Ctx) error {
	if err := gothfiber.Logout(c); err != nil {
		log.Warnf("oauth logout failed: %v", err)
	}
	return HandleAuthLogout(c)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
