package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// wantsHTML reports whether the client prefers an HTML response over JSON.
func wantsHTML(c *fiber.Ctx) bool {
	accept := c.Get(fiber.HeaderAccept)
	return strings.Contains(accept, fiber.MIMETextHTML)
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(c *fiber.Ctx) bool {
	accept := c.Get(fiber.HeaderAccept)
	return strings.Contains(accept, fiber.MIMEApplicationJSON) ||
		strings.Contains(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON)
}

// parsePagination reads page/limit query params with sane bounds.
func parsePagination(c *fiber.Ctx, defaultLimit, maxLimit int) (offset, limit int) {
	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return (page - 1) * limit, limit
}
