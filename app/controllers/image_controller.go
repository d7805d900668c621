package controllers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/odontobb/odontobb/app/models"
	"github.com/odontobb/odontobb/app/repository"
	"github.com/odontobb/odontobb/internal/pkg/imageprocessor"
	"github.com/odontobb/odontobb/internal/pkg/metrics/counter"
	"github.com/odontobb/odontobb/internal/pkg/upload"
)

const maxBatchSize = 50

type uploadImageRequest struct {
	ImageBase64 string `json:"imageBase64"`
	FileName    string `json:"fileName"`
	UserID      string `json:"userId"`
}

type batchProcessRequest struct {
	ImageIDs []string `json:"imageIds"`
}

// HandleImageUpload accepts a base64 encoded image, stores it in the blob
// store as a public object, extracts EXIF, builds a WebP thumbnail and
// records the metadata row.
func HandleImageUpload(c *fiber.Ctx) error {
	if storageClient == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "storage_unavailable",
			"message": "el almacenamiento de imágenes no está configurado",
		})
	}

	var req uploadImageRequest
	if err := c.BodyParser(&req); err != nil || req.ImageBase64 == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "imageBase64 es obligatorio",
		})
	}

	// Data URI prefix is optional
	raw := req.ImageBase64
	if idx := strings.Index(raw, ";base64,"); idx >= 0 {
		raw = raw[idx+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "imageBase64 no es base64 válido",
		})
	}

	contentType, err := upload.ValidateImageBySniff(data)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "unsupported_format",
			"message": err.Error(),
		})
	}

	id := uuid.New().String()
	key := fmt.Sprintf("images/%s%s", id, upload.ExtensionForContentType(contentType))

	ctx := c.Context()
	if err := storageClient.Put(ctx, key, data, contentType, map[string]string{
		"original-name": req.FileName,
	}); err != nil {
		log.Errorf("image upload failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "upload_failed",
			"message": "no se pudo guardar la imagen",
		})
	}
	if err := storageClient.MakePublic(ctx, key); err != nil {
		log.Warnf("make public failed for %s: %v", key, err)
	}

	image := &models.Image{
		ID:           id,
		UserID:       req.UserID,
		OriginalName: req.FileName,
		Size:         int64(len(data)),
		ContentType:  contentType,
		StoragePath:  key,
		DownloadURL:  storageClient.PublicURL(key),
	}

	exifInfo := imageprocessor.ExtractExif(data)
	image.CameraModel = exifInfo.CameraModel
	image.TakenAt = exifInfo.TakenAt

	// Thumbnail failures are not fatal; the original is already stored.
	if thumb, err := imageprocessor.BuildThumbnail(data); err == nil {
		thumbKey := fmt.Sprintf("thumbnails/%s.webp", id)
		if err := storageClient.Put(ctx, thumbKey, thumb, "image/webp", nil); err == nil {
			if err := storageClient.MakePublic(ctx, thumbKey); err == nil {
				image.ThumbnailURL = storageClient.PublicURL(thumbKey)
			}
		}
	} else {
		log.Warnf("thumbnail generation failed for %s: %v", id, err)
	}

	if err := repository.GetGlobalFactory().GetImageRepository().Create(image); err != nil {
		log.Errorf("image metadata write failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "no se pudo registrar la imagen",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "image": image})
}

// HandleImageGet returns one image record by id.
func HandleImageGet(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "id missing"})
	}

	image, err := repository.GetGlobalFactory().GetImageRepository().GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "imagen no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "error interno"})
	}

	if err := counter.AddImageView(id); err != nil {
		log.Warnf("view counter failed for %s: %v", id, err)
	}

	return c.JSON(fiber.Map{"success": true, "image": image})
}

// HandleImageList returns images ordered by upload time, optionally filtered
// by userId, with page/limit pagination.
func HandleImageList(c *fiber.Ctx) error {
	offset, limit := parsePagination(c, 20, 100)
	repo := repository.GetGlobalFactory().GetImageRepository()

	var (
		images []models.Image
		total  int64
		err    error
	)
	if userID := c.Query("userId"); userID != "" {
		images, err = repo.ListByUserID(userID, offset, limit)
		if err == nil {
			total, err = repo.CountByUserID(userID)
		}
	} else {
		images, err = repo.List(offset, limit)
		if err == nil {
			total, err = repo.Count()
		}
	}
	if err != nil {
		log.Errorf("image list failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "error interno"})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"images":  images,
		"total":   total,
	})
}

// HandleImageDelete removes the blob objects and the metadata row. Blob
// deletes are tolerant: a missing object must not keep the row alive.
func HandleImageDelete(c *fiber.Ctx) error {
	id := c.Params("id")
	repo := repository.GetGlobalFactory().GetImageRepository()

	image, err := repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "imagen no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "error interno"})
	}

	if storageClient != nil {
		ctx := c.Context()
		if err := storageClient.Delete(ctx, image.StoragePath); err != nil {
			log.Warnf("blob delete failed for %s: %v", image.StoragePath, err)
		}
		if image.ThumbnailURL != "" {
			if err := storageClient.Delete(ctx, fmt.Sprintf("thumbnails/%s.webp", id)); err != nil {
				log.Warnf("thumbnail delete failed for %s: %v", id, err)
			}
		}
	}

	if err := repo.Delete(id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "no se pudo eliminar la imagen"})
	}

	return c.JSON(fiber.Map{"success": true})
}

// HandleImageBatchProcess runs detection over up to 50 stored images and
// persists the results per image. Failures are collected, not fatal.
func HandleImageBatchProcess(c *fiber.Ctx) error {
	if storageClient == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":   "storage_unavailable",
			"message": "el almacenamiento de imágenes no está configurado",
		})
	}

	var req batchProcessRequest
	if err := c.BodyParser(&req); err != nil || len(req.ImageIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": "imageIds es obligatorio",
		})
	}
	if len(req.ImageIDs) > maxBatchSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "bad_request",
			"message": fmt.Sprintf("máximo %d imágenes por lote", maxBatchSize),
		})
	}

	repo := repository.GetGlobalFactory().GetImageRepository()
	ctx := c.Context()

	type itemResult struct {
		ID         string `json:"id"`
		Processed  bool   `json:"processed"`
		Detections int    `json:"detections,omitempty"`
		Error      string `json:"error,omitempty"`
	}

	results := make([]itemResult, 0, len(req.ImageIDs))
	processed := 0
	for _, id := range req.ImageIDs {
		res := itemResult{ID: id}

		image, err := repo.GetByID(id)
		if err != nil {
			res.Error = "imagen no encontrada"
			results = append(results, res)
			continue
		}

		data, err := storageClient.Get(ctx, image.StoragePath)
		if err != nil {
			res.Error = "no se pudo leer la imagen"
			results = append(results, res)
			continue
		}

		detections, err := detectionEngine.Detect(ctx, data)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		payload, err := json.Marshal(detections)
		if err != nil {
			res.Error = "no se pudo serializar el resultado"
			results = append(results, res)
			continue
		}

		now := time.Now()
		image.Processed = true
		image.DetectionsJSON = string(payload)
		image.ProcessedAt = &now
		if err := repo.Update(image); err != nil {
			res.Error = "no se pudo actualizar la imagen"
			results = append(results, res)
			continue
		}

		res.Processed = true
		res.Detections = len(detections)
		processed++
		results = append(results, res)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"processed": processed,
		"failed":    len(results) - processed,
		"results":   results,
	})
}
