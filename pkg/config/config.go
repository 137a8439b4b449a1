package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Warehouse WarehouseConfig
	Redis     RedisConfig
	Milvus    MilvusConfig
	LLM       LLMConfig
	Drift     DriftConfig
	Retry     RetryConfig
	Artifact  ArtifactConfig
	Retrain   RetrainConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type WarehouseConfig struct {
	Path string
}

type RedisConfig struct {
	Host       string
	Port       int
	Password   string
	DB         int
	SessionTTL int
}

type MilvusConfig struct {
	Endpoint       string
	CollectionName string
	VectorDim      int
	TopK           int
}

type LLMConfig struct {
	Provider        string
	APIKey          string
	Model           string
	EmbeddingModel  string
	EmbeddingTask   string
	RetrievalTask   string
	Temperature     float32
	MaxOutputTokens int
}

type DriftConfig struct {
	EmbeddingBatchSize  int
	SimilarityBatchSize int
	TrendWindowDays     int
	TrendMinEvents      int
	SampleQuota         int
}

type RetryConfig struct {
	MaxRetries      int
	BaseDelaySec    float64
	MaxDelaySec     float64
	ExponentialBase float64
	Jitter          bool
}

type ArtifactConfig struct {
	LocalDir   string
	BucketDir  string
	ObjectName string
}

type RetrainConfig struct {
	WorkflowURL string
	TimeoutSec  int
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
	viper.AddConfigPath("/etc/course-compass")

	viper.SetEnvPrefix("COURSE_COMPASS")
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

func (c RetryConfig) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelaySec * float64(time.Second))
}

func (c RetryConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySec * float64(time.Second))
}

func (c RetrainConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("warehouse.path", "./data/coursecompass.db")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.sessionTTL", 3600)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "course_embeddings")
	viper.SetDefault("milvus.vectorDim", 768)
	viper.SetDefault("milvus.topK", 5)

	viper.SetDefault("llm.provider", "gemini")
	viper.SetDefault("llm.model", "gemini-1.5-flash-002")
	viper.SetDefault("llm.embeddingModel", "text-embedding-005")
	viper.SetDefault("llm.embeddingTask", "CLUSTERING")
	viper.SetDefault("llm.retrievalTask", "RETRIEVAL_QUERY")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.maxOutputTokens", 1024)

	viper.SetDefault("drift.embeddingBatchSize", 4)
	viper.SetDefault("drift.similarityBatchSize", 4)
	viper.SetDefault("drift.trendWindowDays", 7)
	viper.SetDefault("drift.trendMinEvents", 2)
	viper.SetDefault("drift.sampleQuota", 50)

	viper.SetDefault("retry.maxRetries", 10)
	viper.SetDefault("retry.baseDelaySec", 1.0)
	viper.SetDefault("retry.maxDelaySec", 32.0)
	viper.SetDefault("retry.exponentialBase", 2.0)
	viper.SetDefault("retry.jitter", true)

	viper.SetDefault("artifact.localDir", "/tmp")
	viper.SetDefault("artifact.bucketDir", "./data/artifacts")
	viper.SetDefault("artifact.objectName", "processed_trace_data/llm_train_data_drift.jsonl")

	viper.SetDefault("retrain.workflowURL", "http://localhost:8793/api/v1/retrain")
	viper.SetDefault("retrain.timeoutSec", 30)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
