package controllers

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/odontobb/odontobb/internal/pkg/metrics/counter"
	"github.com/odontobb/odontobb/internal/pkg/upload"
)

const maxRemoteImageSize = 20 << 20 // 20 MB

type detectRequest struct {
	ImageURL    string `json:"imageUrl"`
	ImageBase64 string `json:"imageBase64"`
	SaveResult  bool   `json:"saveResult"`
}

// HandleDetect runs the detection engine over an image supplied either by
// URL or as base64. With saveResult the analyzed image is kept in the blob
// store so the result can be reviewed later.
func HandleDetect(c *fiber.Ctx) error {
	var req detectRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "cuerpo de solicitud inválido",
		})
	}
	if req.ImageURL == "" && req.ImageBase64 == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "imageUrl o imageBase64 es obligatorio",
		})
	}

	var (
		data []byte
		err  error
	)
	if req.ImageBase64 != "" {
		raw := req.ImageBase64
		if idx := strings.Index(raw, ";base64,"); idx >= 0 {
			raw = raw[idx+len(";base64,"):]
		}
		data, err = base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_request",
				"message": "imageBase64 no es base64 válido",
			})
		}
	} else {
		data, err = fetchImage(c, req.ImageURL)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "fetch_failed",
				"message": "no se pudo descargar la imagen",
			})
		}
	}

	start := time.Now()
	detections, err := detectionEngine.Detect(c.Context(), data)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "detection_failed",
			"message": err.Error(),
		})
	}

	if err := counter.AddDetectionRun(); err != nil {
		log.Warnf("detection counter failed: %v", err)
	}

	resp := fiber.Map{
		"success":      true,
		"detections":   detections,
		"inference_ms": time.Since(start).Milliseconds(),
		"model":        detectionEngine.Info(),
	}

	if req.SaveResult && storageClient != nil {
		contentType, sniffErr := upload.ValidateImageBySniff(data)
		if sniffErr == nil {
			key := fmt.Sprintf("detections/%s%s", uuid.New().String(), upload.ExtensionForContentType(contentType))
			ctx := c.Context()
			if putErr := storageClient.Put(ctx, key, data, contentType, nil); putErr == nil {
				if aclErr := storageClient.MakePublic(ctx, key); aclErr == nil {
					resp["result_url"] = storageClient.PublicURL(key)
				}
			} else {
				log.Warnf("detection result save failed: %v", putErr)
			}
		}
	}

	return c.JSON(resp)
}

// HandleModelInfo reports the model cache state. POST with action=reload (or
// action=invalidate) manages the cache explicitly.
func HandleModelInfo(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		switch c.Query("action", c.FormValue("action")) {
		case "reload":
			model, err := detectionEngine.Reload(c.Context())
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "reload_failed",
					"message": err.Error(),
				})
			}
			return c.JSON(fiber.Map{"success": true, "version": model.Version})
		case "invalidate":
			detectionEngine.Invalidate()
			return c.JSON(fiber.Map{"success": true})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "bad_request",
				"message": "action must be reload or invalidate",
			})
		}
	}

	info := detectionEngine.Info()
	runs, err := counter.DetectionRuns()
	if err != nil {
		log.Warnf("detection stats read failed: %v", err)
	}
	return c.JSON(fiber.Map{"success": true, "model": info, "runs": runs})
}

func fetchImage(c *fiber.Ctx, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(c.Context(), http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageSize))
}
