package config

import (
	"github.com/docley/docingest/internal/domain"
	"github.com/docley/docingest/internal/repository"
	"github.com/docley/docingest/internal/service"
	"github.com/docley/docingest/pkg/logger"
)

// Container holds all application dependencies. SupabaseClient, AuthService
// and DocumentSink stay nil when Supabase is not configured.
type Container struct {
	Config         domain.Config
	Logger         domain.Logger
	SupabaseClient domain.SupabaseClient
	AuthService    domain.AuthService
	IngestService  domain.IngestService
	DocumentSink   domain.DocumentSink
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	config := NewConfig()
	appLogger := logger.NewLogger(config.GetLogLevel())
	return NewContainerWith(config, appLogger)
}

// NewContainerWith wires the container from an existing config and logger
func NewContainerWith(config domain.Config, appLogger domain.Logger) *Container {
	c := &Container{
		Config:        config,
		Logger:        appLogger,
		IngestService: service.NewIngestServiceFromConfig(config, appLogger),
	}

	if config.GetSupabaseURL() == "" || config.GetSupabaseKey() == "" {
		appLogger.Warn("Supabase not configured; authentication and storage are disabled")
		return c
	}

	// Initialize Supabase client
	supabaseClient := repository.NewSupabaseClient(config, appLogger)
	if err := supabaseClient.Initialize(); err != nil {
		appLogger.Error("Failed to initialize Supabase client; authentication and storage are disabled", err)
		return c
	}

	c.SupabaseClient = supabaseClient
	c.AuthService = service.NewAuthService(supabaseClient, appLogger)
	c.DocumentSink = repository.NewSupabaseDocumentSink(supabaseClient, config.GetDocumentsTable(), appLogger)
	return c
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}

// GetSupabaseClient returns the Supabase client instance
func (c *Container) GetSupabaseClient() domain.SupabaseClient {
	return c.SupabaseClient
}

// GetIngestService returns the ingestion pipeline
func (c *Container) GetIngestService() domain.IngestService {
	return c.IngestService
}

// GetDocumentSink returns the document sink, or nil when storage is disabled
func (c *Container) GetDocumentSink() domain.DocumentSink {
	return c.DocumentSink
}
