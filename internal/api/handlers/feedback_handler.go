package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/serving"
	"github.com/course-compass/backend/pkg/logger"
)

type FeedbackHandler struct {
	engine *serving.Engine
}

func NewFeedbackHandler(engine *serving.Engine) *FeedbackHandler {
	return &FeedbackHandler{engine: engine}
}

func (h *FeedbackHandler) HandleFeedback(c *fiber.Ctx) error {
	var req struct {
		SessionID string `json:"session_id"`
		QueryID   string `json:"query_id"`
		Feedback  string `json:"feedback"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SessionID == "" || req.QueryID == "" || req.Feedback == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "session_id, query_id and feedback are required",
		})
	}

	updated, err := h.engine.SaveFeedback(c.Context(), req.SessionID, req.QueryID, req.Feedback)
	if err != nil {
		logger.Error("Failed to save feedback", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Error saving feedback",
		})
	}

	if !updated {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No matching query for feedback",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Feedback saved successfully",
	})
}
