package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/uniconsult/backend/internal/api/handlers"
	"github.com/uniconsult/backend/internal/cache"
	redisCache "github.com/uniconsult/backend/internal/cache/redis"
	"github.com/uniconsult/backend/internal/corpus"
	"github.com/uniconsult/backend/internal/ingestion"
	"github.com/uniconsult/backend/internal/lexical"
	"github.com/uniconsult/backend/internal/llm"
	"github.com/uniconsult/backend/internal/matcher"
	"github.com/uniconsult/backend/internal/metrics"
	"github.com/uniconsult/backend/internal/middleware/ratelimit"
	"github.com/uniconsult/backend/internal/middleware/security"
	"github.com/uniconsult/backend/internal/middleware/validation"
	"github.com/uniconsult/backend/internal/recommend"
	"github.com/uniconsult/backend/internal/router"
	"github.com/uniconsult/backend/internal/smalltalk"
	"github.com/uniconsult/backend/internal/storage/models"
	"github.com/uniconsult/backend/internal/storage/mysql"
	"github.com/uniconsult/backend/internal/storage/sqlite"
	"github.com/uniconsult/backend/internal/textnorm"
	"github.com/uniconsult/backend/internal/vector"
	"github.com/uniconsult/backend/pkg/config"
	appLogger "github.com/uniconsult/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting consultation Q&A service")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// The consultation database is one of two corpus sources; the service
	// still starts (JSON-only) when it is down.
	var qaSource corpus.QASource
	var llmQASource llm.QASource
	mysqlClient, err := mysql.NewClient(cfg.MySQL.DSN)
	if err != nil {
		appLogger.Warn("MySQL unavailable, JSON corpus only", zap.Error(err))
	} else {
		defer mysqlClient.Close()
		qaSource = mysqlClient
		llmQASource = mysqlClient
	}

	var embCache llm.EmbeddingCache
	if cfg.Redis.Enabled {
		redisClient, err := redisCache.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, embedding cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			embCache = redisClient
		}
	}

	norm, err := textnorm.NewFromFile(cfg.Lexical.DictionaryPath)
	if err != nil {
		appLogger.Warn("Segmentation dictionary not loaded, whitespace segmentation only", zap.Error(err))
		norm = textnorm.New(nil)
	}
	stopwords := textnorm.LoadStopwords(cfg.Lexical.StopwordsPath)

	if llmQASource == nil {
		llmQASource = emptyQASource{}
	}
	llmClient := llm.NewClient(llm.Options{
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		MaxRetries:     cfg.LLM.MaxRetries,
		RetryDelay:     time.Duration(cfg.LLM.RetryDelayMS) * time.Millisecond,
	}, llmQASource, embCache)

	responseCache := cache.New(cfg.Cache.Capacity)

	recommendService := recommend.NewService(norm, stopwords, recommend.Config{
		Threshold:      cfg.Lexical.ScoreThreshold,
		MatrixPath:     cfg.Lexical.MatrixPath,
		VectorizerPath: cfg.Lexical.VectorizerPath,
		Options: lexical.Options{
			MinDocFreq:    cfg.Lexical.MinDocFreq,
			MaxVocabulary: cfg.Lexical.MaxVocabulary,
		},
	})

	// One-shot blocking corpus build; requests only start once the server
	// listens, so no request ever sees a partial index.
	records, err := corpus.Build(cfg.Data.QAJSONPath, qaSource, norm)
	if err != nil {
		appLogger.Warn("Corpus build failed, recommendations degraded", zap.Error(err))
	} else {
		recommendService.Rebuild(records)
		metrics.CorpusSize.Set(float64(len(records)))
		if cfg.Cache.PurgeOnRebuild {
			responseCache.Purge()
		}
	}

	fallbackMatcher := matcher.New(curatedList(cfg.Data.QAJSONPath), norm)
	smallTalk := smalltalk.New(norm)

	loadStore := func() (router.SemanticIndex, error) {
		return vector.Load(cfg.Vector.IndexDir, llmClient)
	}

	queryRouter := router.New(
		router.Config{
			OutOfScopeMessage:  cfg.Answer.OutOfScopeMessage,
			UnavailableMessage: cfg.Answer.UnavailableMessage,
			NoInfoPhrases:      cfg.Answer.NoInfoPhrases,
			SourceDoc:          cfg.Vector.SourceDoc,
			MaxDocs:            cfg.Vector.MaxDocs,
		},
		responseCache,
		smallTalk,
		llmClient,
		llmClient,
		fallbackMatcher,
		loadStore,
		sqliteClient,
	)

	processor := ingestion.NewProcessor(llmClient, cfg.Vector.IndexDir)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.Headers(cfg.Server.Production))
	app.Use(validation.Middleware(validation.Config{MaxQueryLength: cfg.Server.MaxQueryLength}))

	limiter := ratelimit.New(cfg.Server.RateLimitPerMin)
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	recommendHandler := handlers.NewRecommendHandler(recommendService)
	chatHandler := handlers.NewChatHandler(queryRouter, llmClient)
	documentHandler := handlers.NewDocumentHandler(processor)
	feedbackHandler := handlers.NewFeedbackHandler(sqliteClient)

	api := app.Group("/api/v1")

	api.Get("/recommend", recommendHandler.HandleRecommend)
	api.Get("/chat", chatHandler.HandleChat)
	api.Get("/recommend-answers", chatHandler.HandleAlternatives)
	api.Post("/documents", documentHandler.HandleIngest)
	api.Post("/feedback", feedbackHandler.HandleFeedback)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}

// curatedList seeds the last-resort matcher from the exported QA file.
func curatedList(path string) []matcher.QA {
	records, err := corpus.LoadJSON(path)
	if err != nil {
		return nil
	}
	entries := make([]matcher.QA, 0, len(records))
	for i, r := range records {
		entries = append(entries, matcher.QA{
			Question: r.Question,
			Answer:   r.Answer,
			Source:   r.Source,
			Line:     i + 1,
		})
	}
	return entries
}

// emptyQASource stands in when MySQL is down so structured answers
// degrade to "nothing in the database" instead of erroring.
type emptyQASource struct{}

func (emptyQASource) FetchQAPairs() ([]models.QAPair, error) {
	return nil, nil
}
