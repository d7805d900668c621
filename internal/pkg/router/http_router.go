package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/odontobb/odontobb/app/controllers"
	"github.com/odontobb/odontobb/app/repository"
	"github.com/odontobb/odontobb/internal/pkg/database"
	"github.com/odontobb/odontobb/internal/pkg/detection"
	"github.com/odontobb/odontobb/internal/pkg/env"
	"github.com/odontobb/odontobb/internal/pkg/middleware"
	"github.com/odontobb/odontobb/internal/pkg/oauth"
	"github.com/odontobb/odontobb/internal/pkg/payments"
	"github.com/odontobb/odontobb/internal/pkg/session"
	"github.com/odontobb/odontobb/internal/pkg/storage"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware())

	repository.InitializeFactory(database.GetDB())

	// Wire controller collaborators
	var store *storage.Client
	if cfg := storage.NewConfigFromEnv(); cfg.IsEnabled() {
		client, err := storage.NewClient(cfg)
		if err != nil {
			log.Errorf("blob storage setup failed: %v", err)
		} else {
			store = client
		}
	} else {
		log.Warn("blob storage not configured, image endpoints disabled")
	}

	engine := detection.NewEngine(detection.Config{
		ModelURL:   env.GetEnv("MODEL_URL", "https://models.odontobb.com/yolov8n.onnx"),
		TTL:        time.Hour,
		LoadDelay:  2 * time.Second,
		InferDelay: 500 * time.Millisecond,
	})

	controllers.Initialize(payments.NewServiceFromDB(database.GetDB()), store, engine)

	h.registerPublicRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
