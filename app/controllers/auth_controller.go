package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/odontobb/odontobb/app/models"
	"github.com/odontobb/odontobb/app/repository"
	"github.com/odontobb/odontobb/internal/pkg/hcaptcha"
	"github.com/odontobb/odontobb/internal/pkg/session"
	"github.com/odontobb/odontobb/internal/pkg/statistics"
	"github.com/odontobb/odontobb/internal/pkg/usercontext"
)

type credentialsRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// HandleAuthRegister creates a local account with a bcrypt password hash.
func HandleAuthRegister(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return authError(c, fiber.StatusBadRequest, "solicitud inválida", "/register")
	}

	if hcaptcha.Enabled() {
		valid, err := hcaptcha.Verify(c.FormValue("h-captcha-response"))
		if err != nil || !valid {
			return authError(c, fiber.StatusBadRequest, "la verificación captcha falló, intenta de nuevo", "/register")
		}
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return authError(c, fiber.StatusBadRequest, "nombre, correo y contraseña son obligatorios", "/register")
	}

	if err := repository.GetGlobalFactory().GetUserRepository().Create(user); err != nil {
		log.Errorf("register failed for %s: %v", req.Email, err)
		return authError(c, fiber.StatusConflict, "no se pudo crear la cuenta", "/register")
	}

	// The dashboard counters refresh on the next stats read
	statistics.ResetCacheUpdateTimer()

	if wantsJSON(c) {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "user": user})
	}
	fm := fiber.Map{
		"type":    "success",
		"message": "¡Cuenta creada! Ya puedes iniciar sesión.",
	}
	return flash.WithSuccess(c, fm).Redirect("/login")
}

// HandleAuthLogin verifies credentials and opens a session.
func HandleAuthLogin(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return authError(c, fiber.StatusBadRequest, "solicitud inválida", "/login")
	}

	// Same message for unknown email and wrong password on purpose.
	user, err := repository.GetGlobalFactory().GetUserRepository().GetByEmail(req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Errorf("login lookup failed for %s: %v", req.Email, err)
		}
		return authError(c, fiber.StatusUnauthorized, "correo o contraseña incorrectos", "/login")
	}
	if !user.CheckPassword(req.Password) {
		return authError(c, fiber.StatusUnauthorized, "correo o contraseña incorrectos", "/login")
	}
	if !user.IsActive() {
		return authError(c, fiber.StatusForbidden, "la cuenta está desactivada", "/login")
	}

	if err := openSession(c, user); err != nil {
		log.Errorf("session open failed for user %d: %v", user.ID, err)
		return authError(c, fiber.StatusInternalServerError, "no se pudo iniciar sesión", "/login")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := repository.GetGlobalFactory().GetUserRepository().Update(user); err != nil {
		log.Warnf("last login update failed for user %d: %v", user.ID, err)
	}

	if wantsJSON(c) {
		return c.JSON(fiber.Map{"success": true, "user": user})
	}
	fm := fiber.Map{
		"type":    "success",
		"message": fmt.Sprintf("¡Bienvenido, %s!", user.Name),
	}
	return flash.WithSuccess(c, fm).Redirect("/")
}

// HandleAuthLogout destroys the session.
func HandleAuthLogout(c *fiber.Ctx) error {
	if err := session.DestroySession(c); err != nil {
		log.Warnf("logout failed: %v", err)
	}
	c.Locals(usercontext.KeyFromProtected, false)

	if wantsJSON(c) {
		return c.JSON(fiber.Map{"success": true})
	}
	fm := fiber.Map{
		"type":    "success",
		"message": "Sesión cerrada. ¡Hasta pronto!",
	}
	return flash.WithSuccess(c, fm).Redirect("/login")
}

// openSession writes the authenticated user into a fresh session.
func openSession(c *fiber.Ctx, user *models.User) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.AuthKey, true)
	sess.Set(usercontext.KeyUserID, strconv.FormatUint(uint64(user.ID), 10))
	sess.Set(usercontext.KeyUsername, user.Name)
	sess.Set(usercontext.KeyIsAdmin, user.Role == models.ROLE_ADMIN)
	return sess.Save()
}

func authError(c *fiber.Ctx, status int, message, redirectTo string) error {
	if wantsJSON(c) {
		return c.Status(status).JSON(fiber.Map{"error": "auth_error", "message": message})
	}
	fm := fiber.Map{
		"type":    "error",
		"message": message,
	}
	return flash.WithError(c, fm).Redirect(redirectTo)
}
