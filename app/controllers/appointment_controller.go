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
	"github.com/odontobb/odontobb/internal/pkg/mail"
	"github.com/odontobb/odontobb/internal/pkg/statistics"
	"github.com/odontobb/odontobb/internal/pkg/usercontext"
)

// HandleAppointmentCreate books an appointment from the booking form or the
// JSON API. Form submissions are answered with a flash redirect, API calls
// with JSON.
func HandleAppointmentCreate(c *fiber.Ctx) error {
	var appointment models.Appointment
	if err := c.BodyParser(&appointment); err != nil {
		return appointmentError(c, fiber.StatusBadRequest, "datos de la cita inválidos")
	}

	appointment.ID = 0
	appointment.Status = models.AppointmentStatusPending
	if user := usercontext.GetUserContext(c); user.IsLoggedIn && appointment.UserID == "" {
		appointment.UserID = strconv.FormatUint(uint64(user.UserID), 10)
	}

	if err := appointment.Validate(); err != nil {
		return appointmentError(c, fiber.StatusBadRequest, "nombre, teléfono y fecha son obligatorios")
	}

	if err := repository.GetGlobalFactory().GetAppointmentRepository().Create(&appointment); err != nil {
		log.Errorf("appointment create failed: %v", err)
		return appointmentError(c, fiber.StatusInternalServerError, "no se pudo agendar la cita")
	}

	// The dashboard counters refresh on the next stats read
	statistics.ResetCacheUpdateTimer()

	// Confirmation email is best-effort
	if appointment.Email != "" {
		go func(a models.Appointment) {
			body := fmt.Sprintf(
				"<p>Hola %s,</p><p>Recibimos tu solicitud de cita para el %s. Te contactaremos para confirmarla.</p>",
				a.PatientName, a.ScheduledAt.Format("02/01/2006 15:04"),
			)
			if err := mail.SendMail(a.Email, "Solicitud de cita recibida", body); err != nil {
				log.Warnf("appointment confirmation mail failed: %v", err)
			}
		}(appointment)
	}

	if wantsJSON(c) {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "appointment": appointment})
	}
	fm := fiber.Map{
		"type":    "success",
		"message": "¡Cita agendada! Te contactaremos para confirmarla.",
	}
	return flash.WithSuccess(c, fm).Redirect("/")
}

// HandleAppointmentList returns the caller's appointments, or any user's
// appointments for admins via the userId query param.
func HandleAppointmentList(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	userID := c.Query("userId")
	if userID == "" || !user.IsAdmin {
		userID = strconv.FormatUint(uint64(user.UserID), 10)
	}

	offset, limit := parsePagination(c, 20, 100)
	appointments, err := repository.GetGlobalFactory().GetAppointmentRepository().
		ListByUserID(userID, offset, limit)
	if err != nil {
		log.Errorf("appointment list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "error interno"})
	}

	return c.JSON(fiber.Map{"success": true, "appointments": appointments})
}

// HandleAppointmentDay returns the clinic schedule for one calendar day, for
// staff. Defaults to today when no date is given.
func HandleAppointmentDay(c *fiber.Ctx) error {
	day := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "fecha inválida, usa AAAA-MM-DD"})
		}
		day = parsed
	}

	appointments, err := repository.GetGlobalFactory().GetAppointmentRepository().ListByDay(day)
	if err != nil {
		log.Errorf("appointment day list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "error interno"})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"date":         day.Format("2006-01-02"),
		"appointments": appointments,
	})
}

// HandleAppointmentUpdateStatus lets staff confirm or cancel a booking.
func HandleAppointmentUpdateStatus(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "id inválido"})
	}

	var body struct {
		Status string `json:"status" form:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "cuerpo inválido"})
	}
	switch body.Status {
	case models.AppointmentStatusConfirmed, models.AppointmentStatusCanceled, models.AppointmentStatusPending:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "estado inválido"})
	}

	repo := repository.GetGlobalFactory().GetAppointmentRepository()
	if _, err := repo.GetByID(uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "cita no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "error interno"})
	}

	if err := repo.UpdateStatus(uint(id), body.Status); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "no se pudo actualizar la cita"})
	}

	return c.JSON(fiber.Map{"success": true})
}

func appointmentError(c *fiber.Ctx, status int, message string) error {
	if wantsJSON(c) {
		return c.Status(status).JSON(fiber.Map{"error": "bad_request", "message": message})
	}
	fm := fiber.Map{
		"type":    "error",
		"message": message,
	}
	return flash.WithError(c, fm).Redirect("/")
}
