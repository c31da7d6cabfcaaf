package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/uniconsult/backend/internal/ingestion"
	"github.com/uniconsult/backend/pkg/logger"
)

type DocumentHandler struct {
	processor *ingestion.Processor
}

func NewDocumentHandler(processor *ingestion.Processor) *DocumentHandler {
	return &DocumentHandler{processor: processor}
}

// HandleIngest serves POST /documents: extracted page text plus provenance,
// with an optional force flag to rebuild an existing index.
func (h *DocumentHandler) HandleIngest(c *fiber.Ctx) error {
	var req struct {
		Source string `json:"source"`
		Force  bool   `json:"force"`
		Pages  []struct {
			Text string `json:"text"`
			Page int    `json:"page"`
		} `json:"pages"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "Invalid request body",
		})
	}

	if req.Source == "" || len(req.Pages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": "source and pages are required",
		})
	}

	pages := make([]ingestion.Page, 0, len(req.Pages))
	for _, p := range req.Pages {
		pages = append(pages, ingestion.Page{
			Text:       p.Text,
			Source:     req.Source,
			Page:       p.Page,
			TotalPages: len(req.Pages),
		})
	}

	if err := h.processor.ProcessPages(c.Context(), pages, req.Force); err != nil {
		logger.Error("Failed to ingest document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Failed to process document",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Document processed successfully",
		"source":  req.Source,
	})
}
