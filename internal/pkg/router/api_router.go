package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/odontobb/odontobb/app/controllers"
	"github.com/odontobb/odontobb/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "OdontoBB API",
		})
	})

	v1 := api.Group("/v1")

	// Patient images
	v1.Post("/images", middleware.RequireAPISessionAuth, controllers.HandleImageUpload)
	v1.Get("/images", middleware.RequireAPISessionAuth, controllers.HandleImageList)
	v1.Get("/images/:id", middleware.RequireAPISessionAuth, controllers.HandleImageGet)
	v1.Delete("/images/:id", middleware.RequireAPISessionAuth, controllers.HandleImageDelete)
	v1.Post("/images/batch-process", middleware.RequireAPISessionAuth, controllers.HandleImageBatchProcess)

	// Object detection demo
	v1.Post("/detect", controllers.HandleDetect)
	v1.Get("/detect/model", controllers.HandleModelInfo)
	v1.Post("/detect/model", controllers.HandleModelInfo)

	// Dashboard counters
	v1.Get("/stats", middleware.RequireAPISessionAuth, controllers.HandleStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
