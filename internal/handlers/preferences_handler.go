package handlers

import (
	"github.com/gofiber/fiber/v2"

	"later/internal/models"
	"later/internal/services"
)

// PreferencesHandler serves the per-user suggestion toggles.
type PreferencesHandler struct {
	users *services.UserService
}

// NewPreferencesHandler creates a preferences handler.
func NewPreferencesHandler(users *services.UserService) *PreferencesHandler {
	return &PreferencesHandler{users: users}
}

// Get handles GET /api/user/preferences.
func (h *PreferencesHandler) Get(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	user, err := h.users.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	return c.JSON(user.Preferences)
}

// Update handles PUT /api/user/preferences.
func (h *PreferencesHandler) Update(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req models.UpdateUserPreferencesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.users.UpdatePreferences(c.Context(), userID, &req)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update preferences",
		})
	}
	return c.JSON(user.Preferences)
}
