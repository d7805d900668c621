package detection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/odontobb/odontobb/internal/pkg/upload"
)

// ErrModelNotReady is returned when a load is required but fails.
var ErrModelNotReady = errors.New("detection model not ready")

// BBox is a detection rectangle in image pixel coordinates.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detection is one detected object.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// Model describes a loaded checkpoint.
type Model struct {
	Version  string
	Classes  []string
	LoadedAt time.Time
}

// ModelInfo is the externally visible cache state.
type ModelInfo struct {
	Loaded   bool       `json:"loaded"`
	Version  string     `json:"version"`
	LoadTime *time.Time `json:"load_time,omitempty"`
	Classes  int        `json:"classes"`
}

// Config sets up an Engine. TTL bounds how long a loaded model is reused
// before the next request reloads it; the delays simulate checkpoint load
// and inference cost until a real model is plugged in.
type Config struct {
	ModelURL   string
	TTL        time.Duration
	LoadDelay  time.Duration
	InferDelay time.Duration
}

// Engine owns the lazily loaded detection model. The model cache is an
// explicit resource with a TTL and an invalidation call rather than ambient
// process state, so its lifecycle is observable and testable. Inference
// itself is a stand-in: it returns fixed detections after a simulated delay.
type Engine struct {
	cfg Config

	mu    sync.Mutex
	model *Model
}

func NewEngine(cfg Config) *Engine {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Engine{cfg: cfg}
}

// EnsureLoaded returns the cached model, loading it when absent or expired.
func (e *Engine) EnsureLoaded(ctx context.Context) (*Model, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.model != nil && time.Since(e.model.LoadedAt) <= e.cfg.TTL {
		return e.model, nil
	}
	return e.loadLocked(ctx)
}

// Reload drops the cached model and loads a fresh one.
func (e *Engine) Reload(ctx context.Context) (*Model, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = nil
	return e.loadLocked(ctx)
}

// Invalidate drops the cached model; the next request loads again.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.model = nil
}

// Info reports the current cache state without triggering a load.
func (e *Engine) Info() ModelInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	info := ModelInfo{Version: "Not loaded"}
	if e.model != nil {
		t := e.model.LoadedAt
		info.Loaded = true
		info.Version = e.model.Version
		info.LoadTime = &t
		info.Classes = len(e.model.Classes)
	}
	return info
}

func (e *Engine) loadLocked(ctx context.Context) (*Model, error) {
	log.Infof("loading detection model from %s", e.cfg.ModelURL)
	if err := sleepCtx(ctx, e.cfg.LoadDelay); err != nil {
		return nil, err
	}
	e.model = &Model{
		Version:  "YOLOv8n",
		Classes:  cocoClasses,
		LoadedAt: time.Now(),
	}
	return e.model, nil
}

// Detect validates the image bytes, makes sure a model is loaded and runs
// the (mocked) inference pass.
func (e *Engine) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	if _, err := upload.ValidateImageBySniff(image); err != nil {
		return nil, err
	}

	model, err := e.EnsureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, ErrModelNotReady
	}

	if err := sleepCtx(ctx, e.cfg.InferDelay); err != nil {
		return nil, err
	}

	log.Infof("detection pass: image=%d bytes model=%s", len(image), model.Version)

	// Fixed demo output until a real checkpoint is wired in.
	return []Detection{
		{Class: "person", Confidence: 0.95, BBox: BBox{X: 100, Y: 50, Width: 200, Height: 400}},
		{Class: "car", Confidence: 0.87, BBox: BBox{X: 350, Y: 200, Width: 300, Height: 150}},
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
