package handlers

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniconsult/backend/internal/cache"
	"github.com/uniconsult/backend/internal/router"
)

type stubStructured struct{ answer string }

func (s *stubStructured) GenerateStructuredAnswer(context.Context, string) (string, error) {
	return s.answer, nil
}

type stubSmallTalk struct{}

func (stubSmallTalk) Classify(string) string { return "" }

type stubAlternatives struct {
	answers []string
	err     error
}

func (s *stubAlternatives) GenerateAlternatives(context.Context, string, string) ([]string, error) {
	return s.answers, s.err
}

func chatRouter(structuredAnswer string) (*router.Router, *cache.ResponseCache) {
	responseCache := cache.New(0)
	r := router.New(
		router.Config{
			OutOfScopeMessage:  "ngoài phạm vi",
			UnavailableMessage: "không khả dụng",
		},
		responseCache,
		stubSmallTalk{},
		&stubStructured{answer: structuredAnswer},
		nil,
		nil,
		func() (router.SemanticIndex, error) { return nil, assert.AnError },
		nil,
	)
	return r, responseCache
}

func chatApp(r *router.Router, alternatives Alternatives) *fiber.App {
	app := fiber.New()
	h := NewChatHandler(r, alternatives)
	app.Get("/chat", h.HandleChat)
	app.Get("/recommend-answers", h.HandleAlternatives)
	return app
}

func TestHandleChat_MissingText(t *testing.T) {
	r, _ := chatRouter("bất kỳ")
	app := chatApp(r, &stubAlternatives{})

	resp, err := app.Test(httptest.NewRequest("GET", "/chat", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Vui lòng nhập câu hỏi", body["message"])
}

func TestHandleChat_AnswersAndMarksCacheState(t *testing.T) {
	r, _ := chatRouter("Học phí là 10 triệu")
	app := chatApp(r, &stubAlternatives{})

	resp, err := app.Test(httptest.NewRequest("GET", "/chat?text=h%E1%BB%8Dc+ph%C3%AD", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Tìm câu trả lời thành công", body["message"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Học phí là 10 triệu", data["answer"])
	assert.Equal(t, false, data["from_cache"])

	// Same question again comes from the cache with a changed message.
	resp, err = app.Test(httptest.NewRequest("GET", "/chat?text=h%E1%BB%8Dc+ph%C3%AD", nil))
	require.NoError(t, err)
	body = decodeBody(t, resp.Body)
	assert.Equal(t, "Lấy câu trả lời từ cache thành công", body["message"])
	data = body["data"].(map[string]interface{})
	assert.Equal(t, true, data["from_cache"])
}

func TestHandleAlternatives_ReturnsList(t *testing.T) {
	r, _ := chatRouter("Học phí là 10 triệu")
	app := chatApp(r, &stubAlternatives{answers: []string{"một", "hai", "ba", "bốn", "năm", "sáu", "bảy"}})

	resp, err := app.Test(httptest.NewRequest("GET", "/recommend-answers?text=h%E1%BB%8Dc+ph%C3%AD", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	data := body["data"].([]interface{})
	// At most five rephrasings.
	assert.Len(t, data, 5)
	first := data[0].(map[string]interface{})
	assert.Equal(t, "một", first["answer"])
}

func TestHandleAlternatives_GenerationFailureYieldsEmptyList(t *testing.T) {
	r, _ := chatRouter("Học phí là 10 triệu")
	app := chatApp(r, &stubAlternatives{err: assert.AnError})

	resp, err := app.Test(httptest.NewRequest("GET", "/recommend-answers?text=h%E1%BB%8Dc+ph%C3%AD", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp.Body)
	assert.Equal(t, "success", body["status"])
	assert.Empty(t, body["data"])
}
