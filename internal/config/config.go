package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/docley/docingest/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	defaultMaxFileSize           int64 = 20 * 1024 * 1024
	defaultPDFMaxPages                 = 50
	defaultPDFWorkers                  = 4
	defaultPDFLineBreakThreshold       = 3.0
	defaultPDFWordGapRatio             = 0.3
	defaultMaxInlineImageBytes   int64 = 5 * 1024 * 1024
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort            string   `yaml:"server_port"`
	LogLevel              string   `yaml:"log_level"`
	MaxFileSize           int64    `yaml:"max_file_size"`
	PDFMaxPages           int      `yaml:"pdf_max_pages"`
	PDFWorkers            int      `yaml:"pdf_workers"`
	PDFLineBreakThreshold float64  `yaml:"pdf_line_break_threshold"`
	PDFWordGapRatio       float64  `yaml:"pdf_word_gap_ratio"`
	MaxInlineImageBytes   int64    `yaml:"max_inline_image_bytes"`
	SupabaseURL           string   `yaml:"supabase_url"`
	SupabaseKey           string   `yaml:"supabase_anon_key"`
	DocumentsTable        string   `yaml:"documents_table"`
	CORSAllowedOrigins    []string `yaml:"cors_allowed_origins"`
}

// NewConfig creates a new configuration instance. Values come from the
// optional YAML file named by CONFIG_FILE, then the environment, then defaults.
func NewConfig() domain.Config {
	file := loadFile(os.Getenv("CONFIG_FILE"))

	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:            getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", orString(file.ServerPort, "8080"))),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", orString(file.LogLevel, "info")),
		MaxFileSize:           getEnvInt64OrDefault("MAX_FILE_SIZE", orInt64(file.MaxFileSize, defaultMaxFileSize)),
		PDFMaxPages:           getEnvIntOrDefault("PDF_MAX_PAGES", orInt(file.PDFMaxPages, defaultPDFMaxPages)),
		PDFWorkers:            getEnvIntOrDefault("PDF_WORKERS", orInt(file.PDFWorkers, defaultPDFWorkers)),
		PDFLineBreakThreshold: getEnvFloatOrDefault("PDF_LINE_BREAK_THRESHOLD", orFloat(file.PDFLineBreakThreshold, defaultPDFLineBreakThreshold)),
		PDFWordGapRatio:       getEnvFloatOrDefault("PDF_WORD_GAP_RATIO", orFloat(file.PDFWordGapRatio, defaultPDFWordGapRatio)),
		MaxInlineImageBytes:   getEnvInt64OrDefault("MAX_INLINE_IMAGE_BYTES", orInt64(file.MaxInlineImageBytes, defaultMaxInlineImageBytes)),
		SupabaseURL:           getEnvOrDefault("SUPABASE_URL", file.SupabaseURL),
		SupabaseKey:           getEnvOrDefault("SUPABASE_ANON_KEY", file.SupabaseKey),
		DocumentsTable:        getEnvOrDefault("DOCUMENTS_TABLE", orString(file.DocumentsTable, "documents")),
		CORSAllowedOrigins:    getEnvListOrDefault("CORS_ALLOWED_ORIGINS", file.CORSAllowedOrigins),
	}
}

// loadFile reads the YAML config file. A missing or unreadable file yields
// an empty config so the environment and defaults still apply.
func loadFile(path string) AppConfig {
	var cfg AppConfig
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}
	}
	return cfg
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetMaxFileSize returns the maximum allowed file size
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetPDFMaxPages returns how many leading pages of a PDF are read
func (c *AppConfig) GetPDFMaxPages() int {
	return c.PDFMaxPages
}

// GetPDFWorkers returns the number of concurrent page readers
func (c *AppConfig) GetPDFWorkers() int {
	return c.PDFWorkers
}

// GetPDFLineBreakThreshold returns the baseline delta that starts a new line
func (c *AppConfig) GetPDFLineBreakThreshold() float64 {
	return c.PDFLineBreakThreshold
}

// GetPDFWordGapRatio returns the horizontal gap, as a fraction of the font
// size, that splits glyphs into separate fragments
func (c *AppConfig) GetPDFWordGapRatio() float64 {
	return c.PDFWordGapRatio
}

// GetMaxInlineImageBytes returns the largest DOCX image that is inlined
func (c *AppConfig) GetMaxInlineImageBytes() int64 {
	return c.MaxInlineImageBytes
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetDocumentsTable returns the table the document sink writes to
func (c *AppConfig) GetDocumentsTable() string {
	return c.DocumentsTable
}

// GetCORSAllowedOrigins returns the origins allowed by the CORS middleware
func (c *AppConfig) GetCORSAllowedOrigins() []string {
	return c.CORSAllowedOrigins
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		if len(defaultValue) == 0 {
			return []string{"http://localhost:5173", "http://localhost:3000"}
		}
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func orInt64(v, def int64) int64 {
	if v > 0 {
		return v
	}
	return def
}

func orFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
