package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultFileTimeout = 10 * time.Second
	defaultMaxFileSize = 64 << 20
)

type Config struct {
	DatabaseURL string
	Workers     int
	FileTimeout time.Duration
	MaxFileSize int64
	LogLevel    string
	LogFormat   string
	MetricsFile string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	workers := runtime.NumCPU()
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("WORKERS must be a positive integer, got %q", v)
		}
		workers = n
	}

	fileTimeout := defaultFileTimeout
	if v := os.Getenv("FILE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("FILE_TIMEOUT must be a positive duration, got %q", v)
		}
		fileTimeout = d
	}

	maxFileSize := int64(defaultMaxFileSize)
	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("MAX_FILE_SIZE must be a positive number of bytes, got %q", v)
		}
		maxFileSize = n
	}

	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))
	switch logLevel {
	case "":
		logLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", logLevel)
	}

	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	switch logFormat {
	case "":
		logFormat = "console"
	case "console", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be console or json, got %q", logFormat)
	}

	return &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Workers:     workers,
		FileTimeout: fileTimeout,
		MaxFileSize: maxFileSize,
		LogLevel:    logLevel,
		LogFormat:   logFormat,
		MetricsFile: os.Getenv("METRICS_FILE"),
	}, nil
}
