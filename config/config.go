package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	Port        string
	MongoURI    string
	DBName      string
	Backend     string
	MongoClient *mongo.Client

	JWTSecret string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	OpenAIAPIKey string
	OpenAIModel  string

	ProximityRadiusKm  float64
	ProximityInclusive bool

	CORSAllowedOrigins []string
	LogLevel           string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		MongoURI:            os.Getenv("MONGO_URI"),
		DBName:              getEnv("DB_NAME", "food_rescue"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		CORSAllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	defaultBackend := BackendMemory
	if cfg.MongoURI != "" {
		defaultBackend = BackendMongo
	}
	cfg.Backend = strings.ToLower(getEnv("STORE_BACKEND", defaultBackend))
	if cfg.Backend != BackendMongo && cfg.Backend != BackendMemory {
		return nil, fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendMongo, BackendMemory, cfg.Backend)
	}
	if cfg.Backend == BackendMongo && cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGO_URI is required for the mongo backend")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	radius, err := strconv.ParseFloat(getEnv("PROXIMITY_RADIUS_KM", "10"), 64)
	if err != nil || radius <= 0 {
		return nil, fmt.Errorf("PROXIMITY_RADIUS_KM must be a positive number")
	}
	cfg.ProximityRadiusKm = radius

	inclusive, err := strconv.ParseBool(getEnv("PROXIMITY_INCLUSIVE", "true"))
	if err != nil {
		return nil, fmt.Errorf("PROXIMITY_INCLUSIVE: %w", err)
	}
	cfg.ProximityInclusive = inclusive

	return cfg, nil
}

// Connect opens the Mongo client and checks it answers.
func (c *Config) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.MongoURI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping mongo: %w", err)
	}
	c.MongoClient = client
	return nil
}

// Database is the configured database on the connected client.
func (c *Config) Database() *mongo.Database {
	return c.MongoClient.Database(c.DBName)
}

func (c *Config) CloudinaryConfigured() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
