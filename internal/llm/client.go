package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/uniconsult/backend/internal/storage/models"
	"github.com/uniconsult/backend/internal/vector"
	"github.com/uniconsult/backend/pkg/circuitbreaker"
	"github.com/uniconsult/backend/pkg/logger"
	"github.com/uniconsult/backend/pkg/retry"
	"github.com/uniconsult/backend/pkg/utils"
)

// QASource provides the consultation Q&A rows used as structured context.
type QASource interface {
	FetchQAPairs() ([]models.QAPair, error)
}

// EmbeddingCache is an optional store for computed embeddings; nil disables
// caching.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32, ttl time.Duration) error
}

type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int
	qaSource       QASource
	embCache       EmbeddingCache
	cb             *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

type Options struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float32
	MaxTokens      int
	MaxRetries     int
	RetryDelay     time.Duration
}

func NewClient(opts Options, qaSource QASource, embCache EmbeddingCache) *Client {
	client := openai.NewClient(opts.APIKey)

	cb := circuitbreaker.NewCircuitBreaker("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	retryDelay := opts.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}

	retryConfig := retry.Config{
		MaxAttempts:  maxRetries,
		InitialDelay: retryDelay,
		MaxDelay:     retryDelay,
		Multiplier:   1.0,
		Logger:       logger.GetLogger(),
	}

	logger.Info("LLM client initialized",
		zap.String("model", opts.Model),
		zap.String("embedding_model", opts.EmbeddingModel),
	)

	return &Client{
		client:         client,
		model:          opts.Model,
		embeddingModel: opts.EmbeddingModel,
		temperature:    opts.Temperature,
		maxTokens:      opts.MaxTokens,
		qaSource:       qaSource,
		embCache:       embCache,
		cb:             cb,
		retryConfig:    retryConfig,
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: req.UserPrompt,
		},
	}

	var result string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: temperature,
					MaxTokens:   maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			logger.Debug("Completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			result = resp.Choices[0].Message.Content
			return nil
		})
	})

	if err != nil {
		return "", err
	}

	return result, nil
}

const structuredSystemPrompt = `Bạn là trợ lý AI hữu ích trả lời câu hỏi dựa trên nội dung cơ sở dữ liệu tư vấn sinh viên.
Dựa CHỈ vào các cặp Câu hỏi-Trả lời được cung cấp, đưa ra câu trả lời phù hợp nhất.
Nếu không có thông tin liên quan trong cơ sở dữ liệu, trả lời chính xác: "không tìm thấy thông tin".
Trả lời thân thiện, rõ ràng, bằng Markdown.`

// GenerateStructuredAnswer answers from the consultation database. Returns
// empty when the database holds nothing to answer from; the router decides
// the fallback.
func (c *Client) GenerateStructuredAnswer(ctx context.Context, query string) (string, error) {
	pairs, err := c.qaSource.FetchQAPairs()
	if err != nil {
		return "", fmt.Errorf("failed to load QA context: %w", err)
	}
	if len(pairs) == 0 {
		return "", nil
	}

	var b strings.Builder
	for _, p := range pairs {
		fmt.Fprintf(&b, "Câu hỏi: %s\nTrả lời: %s\n\n", p.Question, p.Answer)
	}

	userPrompt := fmt.Sprintf("NỘI DUNG CƠ SỞ DỮ LIỆU:\n%s\nCÂU HỎI NGƯỜI DÙNG: %s", b.String(), query)

	answer, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: structuredSystemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}

const ragSystemPrompt = `Bạn là trợ lý AI thân thiện, chuyên phân tích tài liệu của trường. Trả lời câu hỏi dựa CHỈ vào nội dung tài liệu được cung cấp.
- Chỉ dùng thông tin từ tài liệu.
- Không bịa đặt hoặc thêm thông tin ngoài tài liệu.
- Nếu tài liệu không chứa câu trả lời, trả lời chính xác: "không tìm thấy thông tin".
- Bắt đầu bằng "Chào bạn," và trình bày bằng Markdown: dùng bullet cho danh sách, bảng Markdown cho dữ liệu dạng bảng.`

// GenerateRagAnswer produces a completion grounded on the retrieved chunks.
func (c *Client) GenerateRagAnswer(ctx context.Context, chunks []vector.Chunk, query string) (string, error) {
	var b strings.Builder
	for i, ch := range chunks {
		fmt.Fprintf(&b, "[Trang %d] %s\n\n", ch.Metadata.Page, ch.Text)
		if i >= 19 {
			break
		}
	}

	userPrompt := fmt.Sprintf("**Tài liệu**:\n%s\n**Câu hỏi**: %s", b.String(), query)

	answer, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: ragSystemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return "", err
	}

	return tightenGreeting(strings.TrimSpace(answer)), nil
}

const alternativesSystemPrompt = `Bạn là trợ lý AI thân thiện và chuyên nghiệp.
Tạo 5 cách diễn đạt khác nhau cho cùng một câu trả lời: mỗi cách một góc nhìn riêng, giữ đúng thông tin cốt lõi, giọng điệu tự nhiên.
CHỈ TRẢ VỀ 5 CÂU TRẢ LỜI THAY THẾ, MỖI CÂU TRÊN 1 ĐOẠN VĂN, KHÔNG ĐÁNH SỐ, KHÔNG GIẢI THÍCH.`

// GenerateAlternatives returns up to five rephrasings of a base answer.
func (c *Client) GenerateAlternatives(ctx context.Context, question, baseAnswer string) ([]string, error) {
	userPrompt := fmt.Sprintf("CÂU HỎI: %s\nCÂU TRẢ LỜI GỐC: %s", question, baseAnswer)

	raw, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: alternativesSystemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil {
		return nil, err
	}

	var alternatives []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			alternatives = append(alternatives, line)
		}
	}
	if len(alternatives) > 5 {
		alternatives = alternatives[:5]
	}
	return alternatives, nil
}

const personalizeSystemPrompt = `Bạn là trợ lý AI thân thiện và chuyên nghiệp.
Điều chỉnh lại câu trả lời cho phù hợp với ngữ cảnh người dùng, không bịa thêm thông tin.
Giữ phong cách lịch sự, bắt đầu bằng "Chào bạn," và trả lời bằng Markdown.`

// PersonalizeAnswer adapts an answer to a user context. Failures fall back
// to the original answer; personalization is best-effort.
func (c *Client) PersonalizeAnswer(ctx context.Context, answer, userContext string) string {
	if userContext == "" {
		return answer
	}

	userPrompt := fmt.Sprintf("**Ngữ cảnh người dùng**: %s\n\n**Trả lời gốc**:\n%s", userContext, answer)

	personalized, err := c.Complete(ctx, CompletionRequest{
		SystemPrompt: personalizeSystemPrompt,
		UserPrompt:   userPrompt,
	})
	if err != nil || strings.TrimSpace(personalized) == "" {
		logger.Warn("Personalization failed, keeping original answer", zap.Error(err))
		return answer
	}
	return strings.TrimSpace(personalized)
}

func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if c.embCache != nil {
		if emb, ok, err := c.embCache.GetEmbedding(ctx, utils.HashString(text)); err == nil && ok {
			return emb, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var embedding []float32

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateEmbeddings(
				ctx,
				openai.EmbeddingRequest{
					Input: []string{text},
					Model: openai.EmbeddingModel(c.embeddingModel),
				},
			)

			if err != nil {
				return fmt.Errorf("failed to generate embedding: %w", err)
			}

			embedding = make([]float32, len(resp.Data[0].Embedding))
			copy(embedding, resp.Data[0].Embedding)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	if c.embCache != nil {
		if err := c.embCache.SetEmbedding(ctx, utils.HashString(text), embedding, 24*time.Hour); err != nil {
			logger.Debug("Failed to cache embedding", zap.Error(err))
		}
	}

	return embedding, nil
}

func (c *Client) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var embeddings [][]float32

	batchSize := 100
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[i:end]

		err := c.cb.Execute(ctx, func() error {
			return retry.Do(ctx, c.retryConfig, func() error {
				resp, err := c.client.CreateEmbeddings(
					ctx,
					openai.EmbeddingRequest{
						Input: batch,
						Model: openai.EmbeddingModel(c.embeddingModel),
					},
				)

				if err != nil {
					return fmt.Errorf("failed to generate batch embeddings: %w", err)
				}

				for _, data := range resp.Data {
					embedding := make([]float32, len(data.Embedding))
					copy(embedding, data.Embedding)
					embeddings = append(embeddings, embedding)
				}
				return nil
			})
		})

		if err != nil {
			return nil, err
		}
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))

	return embeddings, nil
}

// tightenGreeting collapses the blank line the model tends to leave after a
// bold greeting.
func tightenGreeting(text string) string {
	return strings.Replace(text, "**Chào bạn,**\n\n", "**Chào bạn,**\n", 1)
}
