package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/course-compass/backend/internal/serving"
	"github.com/course-compass/backend/pkg/logger"
)

type PredictHandler struct {
	engine *serving.Engine
}

func NewPredictHandler(engine *serving.Engine) *PredictHandler {
	return &PredictHandler{engine: engine}
}

func (h *PredictHandler) HandlePredict(c *fiber.Ctx) error {
	var req struct {
		Query     string `json:"query"`
		SessionID string `json:"session_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Query == "" || req.SessionID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "query and session_id are required",
		})
	}

	resp, err := h.engine.Predict(c.Context(), serving.PredictRequest{
		Query:     req.Query,
		SessionID: req.SessionID,
	})
	if err != nil {
		logger.Error("Failed to process prediction", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process query",
		})
	}

	return c.JSON(fiber.Map{
		"query_id": resp.QueryID,
		"response": resp.Response,
	})
}
