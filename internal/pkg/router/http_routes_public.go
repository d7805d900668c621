package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/odontobb/odontobb/app/controllers"
	"github.com/odontobb/odontobb/internal/pkg/constants"
	"github.com/odontobb/odontobb/internal/pkg/middleware"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Local auth
	app.Post("/register", controllers.HandleAuthRegister)
	app.Post("/login", controllers.HandleAuthLogin)
	app.Get("/logout", controllers.HandleAuthLogout)

	// OAuth (Google)
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
	app.Get("/auth/logout", controllers.HandleOAuthLogout)

	// Payments. The order endpoint also accepts GET with query params so the
	// booking page can link straight into it; the hook route must see every
	// method to answer 405 itself.
	app.All(constants.PaymentOrderRoute, controllers.HandlePaymentOrder)
	app.Get(constants.PaymentOrderRoute+"/:reference", middleware.RequireAPISessionAuth, controllers.HandlePaymentStatus)
	app.All(constants.PaymentHookRoute, controllers.HandlePaymentWebhook)
	app.Get(constants.PaymentCancelRoute, controllers.HandlePaymentCancel)

	// Appointment booking form is public; listing and management need a session
	app.Post("/appointments", controllers.HandleAppointmentCreate)
	app.Get("/appointments", middleware.RequireAPISessionAuth, controllers.HandleAppointmentList)
	app.Get("/appointments/day", middleware.RequireAdmin, controllers.HandleAppointmentDay)
	app.Post("/appointments/:id/status", middleware.RequireAdmin, controllers.HandleAppointmentUpdateStatus)
}
