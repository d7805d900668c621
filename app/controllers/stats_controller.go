package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/odontobb/odontobb/internal/pkg/statistics"
)

// HandleStats returns the clinic dashboard counters plus blob store health.
func HandleStats(c *fiber.Ctx) error {
	data := statistics.GetStatisticsData()

	resp := fiber.Map{
		"success":            true,
		"total_users":        data.TotalUsers,
		"total_images":       data.TotalImages,
		"total_appointments": data.TotalAppointments,
		"today_appointments": data.TodayAppointments,
	}
	if storageClient != nil {
		resp["storage"] = storageClient.CheckHealth(c.Context())
	}
	return c.JSON(resp)
}
