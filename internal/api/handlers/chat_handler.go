package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/uniconsult/backend/internal/router"
)

// Alternatives produces rephrasings of a base answer.
type Alternatives interface {
	GenerateAlternatives(ctx context.Context, question, baseAnswer string) ([]string, error)
}

type ChatHandler struct {
	router       *router.Router
	alternatives Alternatives
}

func NewChatHandler(r *router.Router, alternatives Alternatives) *ChatHandler {
	return &ChatHandler{router: r, alternatives: alternatives}
}

// HandleChat serves GET /chat?text=...
func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	start := time.Now()

	question := strings.TrimSpace(c.Query("text"))
	if question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "fail",
			"message": "Vui lòng nhập câu hỏi",
			"data":    fiber.Map{"time": elapsed(start)},
		})
	}

	answer := h.router.AnswerChat(c.Context(), question)

	message := "Tìm câu trả lời thành công"
	if answer.FromCache {
		message = "Lấy câu trả lời từ cache thành công"
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": message,
		"data": fiber.Map{
			"question":   question,
			"answer":     answer.Text,
			"from_cache": answer.FromCache,
			"time":       elapsed(start),
		},
	})
}

// HandleAlternatives serves GET /recommend-answers?text=...
func (h *ChatHandler) HandleAlternatives(c *fiber.Ctx) error {
	question := strings.TrimSpace(c.Query("text"))
	if question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": `Tham số truy vấn "text" là bắt buộc và không được rỗng`,
		})
	}

	answer := h.router.AnswerChat(c.Context(), question)

	alternatives, err := h.alternatives.GenerateAlternatives(c.Context(), question, answer.Text)
	if err != nil {
		alternatives = nil
	}
	if len(alternatives) > 5 {
		alternatives = alternatives[:5]
	}

	data := make([]fiber.Map, 0, len(alternatives))
	for _, a := range alternatives {
		data = append(data, fiber.Map{"answer": a})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Đã tạo câu trả lời thay thế",
		"data":    data,
	})
}

func elapsed(start time.Time) float64 {
	return float64(time.Since(start).Milliseconds()) / 1000
}
