package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/feichai0017/document-analyzer/internal/models"
)

var (
	appOnce   sync.Once
	appConfig *AppConfig
	appErr    error
)

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	GRPCAddr        string        `yaml:"grpcAddr"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Addr is the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type UploadConfig struct {
	MaxFileSizeMB     int      `yaml:"maxFileSizeMB"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
	MaxPDFPages       int      `yaml:"maxPDFPages"`
}

func (u UploadConfig) MaxFileSizeBytes() int64 {
	return int64(u.MaxFileSizeMB) * 1024 * 1024
}

// NormalizedExtensions returns the allowed extensions lower-cased with a
// leading dot.
func (u UploadConfig) NormalizedExtensions() []string {
	out := make([]string, 0, len(u.AllowedExtensions))
	for _, ext := range u.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

type ImageConfig struct {
	DPI      int     `yaml:"dpi"`
	Quality  int     `yaml:"quality"`
	MaxWidth int     `yaml:"maxWidth"`
	Contrast float64 `yaml:"contrast"`
	Sharpen  float64 `yaml:"sharpen"`
}

type AIConfig struct {
	Extractor      string        `yaml:"extractor"`
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseURL"`
	Model          string        `yaml:"model"`
	MaxTokens      int           `yaml:"maxTokens"`
	Temperature    float64       `yaml:"temperature"`
	Timeout        time.Duration `yaml:"timeout"`
	StrictSchema   bool          `yaml:"strictSchema"`
	TesseractLangs []string      `yaml:"tesseractLangs"`
}

type JobConfig struct {
	PageConcurrency int           `yaml:"pageConcurrency"`
	Timeout         time.Duration `yaml:"timeout"`
	Retention       time.Duration `yaml:"retention"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
}

type QueueConfig struct {
	Backend       string `yaml:"backend"`
	Concurrency   int    `yaml:"concurrency"`
	Size          int    `yaml:"size"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	RedisPassword string `yaml:"redisPassword"`
}

type StoreConfig struct {
	Backend   string `yaml:"backend"`
	KeyPrefix string `yaml:"keyPrefix"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend"`
	UploadDir string `yaml:"uploadDir"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
	Dir      string `yaml:"dir"`
}

// AppConfig is the full service configuration.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Upload  UploadConfig  `yaml:"upload"`
	Image   ImageConfig   `yaml:"image"`
	AI      AIConfig      `yaml:"ai"`
	Jobs    JobConfig     `yaml:"jobs"`
	Queue   QueueConfig   `yaml:"queue"`
	Store   StoreConfig   `yaml:"store"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 15 * time.Second,
		},
		Upload: UploadConfig{
			MaxFileSizeMB:     50,
			AllowedExtensions: []string{"pdf", "jpg", "jpeg", "png"},
			MaxPDFPages:       200,
		},
		Image: ImageConfig{
			DPI:      200,
			Quality:  85,
			MaxWidth: 600,
			Contrast: 50,
		},
		AI: AIConfig{
			Extractor:      "vision",
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "google/gemini-3-flash-preview",
			MaxTokens:      4096,
			Timeout:        120 * time.Second,
			TesseractLangs: []string{"eng"},
		},
		Jobs: JobConfig{
			PageConcurrency: 1,
			Timeout:         30 * time.Minute,
			Retention:       24 * time.Hour,
			CleanupInterval: time.Hour,
		},
		Queue: QueueConfig{
			Backend:     "pool",
			Concurrency: 4,
			Size:        100,
			RedisAddr:   "localhost:6379",
		},
		Store: StoreConfig{
			Backend:   "memory",
			KeyPrefix: "docanalyzer:",
		},
		Storage: StorageConfig{
			Backend:   "local",
			UploadDir: "./data/uploads",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
			Dir:      "./logs",
		},
	}
}

// LoadAppConfig builds the configuration from defaults, the optional YAML
// file named by CONFIG_FILE, and finally the environment.
func LoadAppConfig() (*AppConfig, error) {
	loadDotEnv()

	cfg := Default()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetAppConfig returns the process-wide configuration.
func GetAppConfig() (*AppConfig, error) {
	appOnce.Do(func() {
		appConfig, appErr = LoadAppConfig()
	})
	return appConfig, appErr
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	c.Server.Host = getEnv("BACKEND_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("BACKEND_PORT", c.Server.Port)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.CORSOrigins = getEnvList("CORS_ORIGINS", c.Server.CORSOrigins)
	c.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Upload.MaxFileSizeMB = getEnvInt("MAX_FILE_SIZE_MB", c.Upload.MaxFileSizeMB)
	c.Upload.AllowedExtensions = getEnvList("ALLOWED_EXTENSIONS", c.Upload.AllowedExtensions)
	c.Upload.MaxPDFPages = getEnvInt("MAX_PDF_PAGES", c.Upload.MaxPDFPages)

	c.Image.DPI = getEnvInt("IMAGE_DPI", c.Image.DPI)
	c.Image.Quality = getEnvInt("IMAGE_QUALITY", c.Image.Quality)
	c.Image.MaxWidth = getEnvInt("MAX_IMAGE_WIDTH", c.Image.MaxWidth)
	c.Image.Contrast = getEnvFloat("IMAGE_CONTRAST", c.Image.Contrast)
	c.Image.Sharpen = getEnvFloat("IMAGE_SHARPEN", c.Image.Sharpen)

	c.AI.Extractor = strings.ToLower(getEnv("EXTRACTOR", c.AI.Extractor))
	c.AI.APIKey = getEnv("AI_API_KEY", getEnv("OPENAI_API_KEY", c.AI.APIKey))
	c.AI.BaseURL = getEnv("AI_BASE_URL", getEnv("OPENAI_BASE_URL", c.AI.BaseURL))
	c.AI.Model = getEnv("MODEL_ID", c.AI.Model)
	c.AI.MaxTokens = getEnvInt("MAX_TOKENS", c.AI.MaxTokens)
	c.AI.Temperature = getEnvFloat("AI_TEMPERATURE", c.AI.Temperature)
	c.AI.Timeout = getEnvDuration("AI_TIMEOUT", c.AI.Timeout)
	c.AI.StrictSchema = getEnvBool("AI_STRICT_SCHEMA", c.AI.StrictSchema)
	c.AI.TesseractLangs = getEnvList("TESSERACT_LANGS", c.AI.TesseractLangs)

	c.Jobs.PageConcurrency = getEnvInt("PAGE_CONCURRENCY", c.Jobs.PageConcurrency)
	c.Jobs.Timeout = getEnvDuration("JOB_TIMEOUT", c.Jobs.Timeout)
	c.Jobs.Retention = getEnvDuration("JOB_RETENTION", c.Jobs.Retention)
	c.Jobs.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", c.Jobs.CleanupInterval)

	c.Queue.Backend = strings.ToLower(getEnv("QUEUE_BACKEND", c.Queue.Backend))
	c.Queue.Concurrency = getEnvInt("WORKER_CONCURRENCY", c.Queue.Concurrency)
	c.Queue.Size = getEnvInt("QUEUE_SIZE", c.Queue.Size)
	c.Queue.RedisAddr = getEnv("REDIS_ADDR", c.Queue.RedisAddr)
	c.Queue.RedisDB = getEnvInt("REDIS_DB", c.Queue.RedisDB)
	c.Queue.RedisPassword = getEnv("REDIS_PASSWORD", c.Queue.RedisPassword)

	c.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", c.Store.Backend))
	c.Store.KeyPrefix = getEnv("REDIS_KEY_PREFIX", c.Store.KeyPrefix)

	c.Storage.Backend = strings.ToLower(getEnv("STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.UploadDir = getEnv("UPLOAD_DIR", c.Storage.UploadDir)

	c.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Log.Level))
	c.Log.Encoding = getEnv("LOG_ENCODING", c.Log.Encoding)
	c.Log.Dir = getEnv("LOG_DIR", c.Log.Dir)
}

// Validate rejects settings the service cannot run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		errs = append(errs, errors.New("MAX_FILE_SIZE_MB must be positive"))
	}
	exts := c.Upload.NormalizedExtensions()
	if len(exts) == 0 {
		errs = append(errs, errors.New("ALLOWED_EXTENSIONS must not be empty"))
	}
	for _, ext := range exts {
		if _, ok := models.DetectFileType(ext); !ok {
			errs = append(errs, fmt.Errorf("ALLOWED_EXTENSIONS entry %q has no page renderer", ext))
		}
	}
	if c.Image.DPI <= 0 || c.Image.MaxWidth <= 0 {
		errs = append(errs, errors.New("IMAGE_DPI and MAX_IMAGE_WIDTH must be positive"))
	}
	if c.Image.Quality < 1 || c.Image.Quality > 100 {
		errs = append(errs, fmt.Errorf("IMAGE_QUALITY must be within 1..100, got %d", c.Image.Quality))
	}
	if c.Image.Contrast < -100 || c.Image.Contrast > 100 {
		errs = append(errs, fmt.Errorf("IMAGE_CONTRAST must be within -100..100, got %v", c.Image.Contrast))
	}

	switch c.AI.Extractor {
	case "vision":
		if c.AI.APIKey == "" {
			errs = append(errs, errors.New("AI_API_KEY (or OPENAI_API_KEY) is required for the vision extractor"))
		}
		if c.AI.BaseURL == "" || c.AI.Model == "" {
			errs = append(errs, errors.New("AI_BASE_URL and MODEL_ID are required for the vision extractor"))
		}
	case "textract", "tesseract":
	default:
		errs = append(errs, fmt.Errorf("unknown extractor %q", c.AI.Extractor))
	}

	if c.Jobs.PageConcurrency < 1 {
		errs = append(errs, errors.New("PAGE_CONCURRENCY must be at least 1"))
	}

	switch c.Queue.Backend {
	case "inline", "pool":
	case "asynq":
		if c.Store.Backend != "redis" {
			errs = append(errs, errors.New("QUEUE_BACKEND=asynq requires STORE_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown queue backend %q", c.Queue.Backend))
	}
	if c.Queue.Backend == "pool" && (c.Queue.Concurrency < 1 || c.Queue.Size < 1) {
		errs = append(errs, errors.New("WORKER_CONCURRENCY and QUEUE_SIZE must be positive"))
	}

	switch c.Store.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	switch c.Storage.Backend {
	case "local", "minio", "s3":
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	return errors.Join(errs...)
}
