package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"later/internal/document"
	"later/internal/models"
	"later/internal/services"
)

// ContentHandler serves content CRUD and capture endpoints.
type ContentHandler struct {
	repo      services.ContentRepository
	capture   *services.CaptureService
	renderer  *document.Renderer
	analytics *services.AnalyticsService
}

// NewContentHandler creates a content handler. analytics may be nil.
func NewContentHandler(repo services.ContentRepository, capture *services.CaptureService, renderer *document.Renderer, analytics *services.AnalyticsService) *ContentHandler {
	return &ContentHandler{repo: repo, capture: capture, renderer: renderer, analytics: analytics}
}

// Create handles POST /api/content.
func (h *ContentHandler) Create(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req models.CreateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.URL == "" && strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Either url or content is required",
		})
	}

	item, err := h.capture.Capture(c.Context(), userID, &req)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

// List handles GET /api/content.
func (h *ContentHandler) List(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	query := models.ContentQuery{
		OrderBy: c.Query("order_by", "capturedAt"),
		Limit:   c.QueryInt("limit", 50),
	}
	if status := c.Query("status"); status != "" {
		if !models.ValidContentStatus(status) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown status",
			})
		}
		query.Statuses = []string{status}
	}
	if source := c.Query("source"); source != "" {
		query.Sources = []string{source}
	}

	items, err := h.repo.List(c.Context(), userID, query)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list content",
		})
	}
	if items == nil {
		items = []models.ContentItem{}
	}

	return c.JSON(fiber.Map{
		"items": items,
		"total": len(items),
	})
}

// Get handles GET /api/content/:id.
func (h *ContentHandler) Get(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	item, err := h.repo.GetByID(c.Context(), userID, c.Params("id"))
	if err != nil {
		return contentError(c, err)
	}
	return c.JSON(item)
}

// Update handles PUT /api/content/:id.
func (h *ContentHandler) Update(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req models.UpdateContentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Status != nil && !models.ValidContentStatus(*req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown status",
		})
	}
	if req.Priority != nil && !models.ValidContentPriority(*req.Priority) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown priority",
		})
	}

	item, err := h.repo.Update(c.Context(), userID, c.Params("id"), &req)
	if err != nil {
		return contentError(c, err)
	}
	return c.JSON(item)
}

// Delete handles DELETE /api/content/:id (soft delete).
func (h *ContentHandler) Delete(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	if err := h.repo.SoftDelete(c.Context(), userID, c.Params("id")); err != nil {
		return contentError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": true})
}

// MarkViewed handles POST /api/content/:id/view.
func (h *ContentHandler) MarkViewed(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	id := c.Params("id")

	if err := h.repo.MarkViewed(c.Context(), userID, id); err != nil {
		return contentError(c, err)
	}

	if h.analytics != nil {
		h.analytics.Record(userID, models.EventContentViewed, map[string]interface{}{
			"content_id": id,
		})
	}
	return c.JSON(fiber.Map{"viewed": true})
}

// Preview handles GET /api/content/:id/preview.
func (h *ContentHandler) Preview(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	item, err := h.repo.GetByID(c.Context(), userID, c.Params("id"))
	if err != nil {
		return contentError(c, err)
	}

	html, err := h.renderer.PreviewHTML(item)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to render preview",
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(html)
}

func contentError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrContentNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Content not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Content operation failed",
	})
}
