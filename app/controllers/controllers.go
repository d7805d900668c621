package controllers

import (
	"github.com/odontobb/odontobb/internal/pkg/detection"
	"github.com/odontobb/odontobb/internal/pkg/payments"
	"github.com/odontobb/odontobb/internal/pkg/storage"
)

// Shared collaborators injected once at startup.
var (
	paymentService  *payments.Service
	storageClient   *storage.Client
	detectionEngine *detection.Engine
)

// Initialize wires the controller package to its collaborators. The storage
// client may be nil when blob storage is not configured; affected endpoints
// then answer 503.
func Initialize(payments *payments.Service, store *storage.Client, engine *detection.Engine) {
	paymentService = payments
	storageClient = store
	detectionEngine = engine
}
