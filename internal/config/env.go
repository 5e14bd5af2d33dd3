package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	SslCertPath  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	ParsingServiceURL string
	AzureDIEndpoint   string
	AzureDIKey        string
	AzureDIMaxBytes   int64

	EmbedProvider string // "openai" or "gemini"
	OpenAIAPIKey  string
	GeminiAPIKey  string
	EmbedModel    string
	EmbedDim      int
	GenModel      string
	OpenAIModel   string

	ChunkMaxWords  int
	EmbedBatchSize int
	RetrievalTopK  int
	QueueWorkers   int

	LogLevel  string
	LogFormat string
	Port      string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "parsebench-docs"),

		ParsingServiceURL: getEnv("PARSING_SERVICE_URL", "http://localhost:8000"),
		AzureDIEndpoint:   getEnv("AZURE_DI_ENDPOINT", ""),
		AzureDIKey:        getEnv("AZURE_DI_KEY", ""),
		AzureDIMaxBytes:   int64(getEnvInt("AZURE_DI_MAX_BYTES", 4<<20)),

		EmbedProvider: getEnv("EMBED_PROVIDER", "openai"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		EmbedModel:    getEnv("EMBED_MODEL", "text-embedding-3-small"),
		EmbedDim:      getEnvInt("EMBED_DIM", 1536),
		GenModel:      getEnv("GEN_MODEL", "gemini-1.5-flash"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o"),

		ChunkMaxWords:  getEnvInt("CHUNK_MAX_WORDS", 1000),
		EmbedBatchSize: getEnvInt("EMBED_BATCH_SIZE", 10),
		RetrievalTopK:  getEnvInt("RETRIEVAL_TOP_K", 5),
		QueueWorkers:   getEnvInt("QUEUE_WORKERS", 4),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		Port:      getEnv("PORT", "8080"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
