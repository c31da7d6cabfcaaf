package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/uniconsult/backend/internal/metrics"
	"github.com/uniconsult/backend/internal/recommend"
)

type RecommendHandler struct {
	service *recommend.Service
}

func NewRecommendHandler(service *recommend.Service) *RecommendHandler {
	return &RecommendHandler{service: service}
}

// HandleRecommend serves GET /recommend?text=...
func (h *RecommendHandler) HandleRecommend(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("text"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"status":  "error",
			"message": `Tham số truy vấn "text" là bắt buộc và không được rỗng`,
		})
	}

	if !h.service.Ready() {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Dữ liệu gợi ý chưa sẵn sàng, vui lòng thử lại sau",
			"data":    []recommend.Recommendation{},
		})
	}

	recommendations := h.service.Recommend(query, 5)
	metrics.RecommendationsReturned.Observe(float64(len(recommendations)))

	if len(recommendations) == 0 {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": fmt.Sprintf(`Không tìm thấy gợi ý phù hợp cho truy vấn "%s"`, query),
			"data":    []recommend.Recommendation{},
		})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": fmt.Sprintf(`Đã gợi ý %d mục cho truy vấn "%s"`, len(recommendations), query),
		"data":    recommendations,
	})
}
