package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	MySQL   MySQLConfig
	SQLite  SQLiteConfig
	Redis   RedisConfig
	LLM     LLMConfig
	Lexical LexicalConfig
	Vector  VectorConfig
	Cache   CacheConfig
	Data    DataConfig
	Answer  AnswerConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	BodyLimit       int
	RateLimitPerMin int
	MaxQueryLength  int
	Production      bool
}

type MySQLConfig struct {
	DSN string
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LLMConfig struct {
	Model          string
	APIKey         string
	Temperature    float32
	MaxTokens      int
	MaxRetries     int
	RetryDelayMS   int
	EmbeddingModel string
	EmbeddingDim   int
}

// LexicalConfig controls the TF-IDF index built over the merged Q&A corpus.
type LexicalConfig struct {
	MinDocFreq     int
	MaxVocabulary  int
	ScoreThreshold float64
	MatrixPath     string
	VectorizerPath string
	StopwordsPath  string
	DictionaryPath string
}

// VectorConfig controls the locally persisted semantic index.
type VectorConfig struct {
	IndexDir   string
	SourceDoc  string
	SearchTopK int
	MaxDocs    int
}

type CacheConfig struct {
	Capacity       int
	PurgeOnRebuild bool
}

type DataConfig struct {
	QAJSONPath string
}

// AnswerConfig carries the canonical user-facing strings the router returns
// when retrieval finds nothing or a dependency is down.
type AnswerConfig struct {
	OutOfScopeMessage  string
	UnavailableMessage string
	NoInfoPhrases      []string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/uniconsult")

	viper.SetEnvPrefix("UNICONSULT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)
	viper.SetDefault("server.rateLimitPerMin", 120)
	viper.SetDefault("server.maxQueryLength", 2000)
	viper.SetDefault("server.production", false)

	viper.SetDefault("mysql.dsn", "root:root@tcp(localhost:3306)/consultant?parseTime=true")

	viper.SetDefault("sqlite.path", "./data/uniconsult.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("llm.model", "gpt-4")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.maxRetries", 3)
	viper.SetDefault("llm.retryDelayMS", 1000)
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-large")
	viper.SetDefault("llm.embeddingDim", 1536)

	viper.SetDefault("lexical.minDocFreq", 2)
	viper.SetDefault("lexical.maxVocabulary", 10000)
	viper.SetDefault("lexical.scoreThreshold", 0.1)
	viper.SetDefault("lexical.matrixPath", "./data/tfidf_matrix.gob")
	viper.SetDefault("lexical.vectorizerPath", "./data/tfidf_vectorizer.gob")
	viper.SetDefault("lexical.stopwordsPath", "./data/stopwords.txt")
	viper.SetDefault("lexical.dictionaryPath", "./data/vi_words.txt")

	viper.SetDefault("vector.indexDir", "./vector_index")
	viper.SetDefault("vector.sourceDoc", "so-tay-sinh-vien.pdf")
	viper.SetDefault("vector.searchTopK", 10)
	viper.SetDefault("vector.maxDocs", 20)

	viper.SetDefault("cache.capacity", 0)
	viper.SetDefault("cache.purgeOnRebuild", false)

	viper.SetDefault("data.qaJSONPath", "./data/output.json")

	viper.SetDefault("answer.outOfScopeMessage",
		"Chào bạn, cảm ơn bạn đã gửi câu hỏi đến chúng tôi. Tuy nhiên, hiện tại nội dung câu hỏi nằm ngoài phạm vi hỗ trợ của hệ thống. Bạn có thể đặt câu hỏi trực tiếp để được tư vấn viên trả lời. Chúng tôi sẽ ghi nhận câu hỏi này và cập nhật thêm dữ liệu để có thể trả lời tốt hơn trong tương lai. Rất mong bạn thông cảm.")
	viper.SetDefault("answer.unavailableMessage",
		"Xin lỗi, tôi không thể xử lý yêu cầu của bạn. Vui lòng thử lại sau.")
	viper.SetDefault("answer.noInfoPhrases", []string{
		"không tìm thấy thông tin",
		"không có thông tin",
	})

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
