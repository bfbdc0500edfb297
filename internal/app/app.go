// Package app wires configuration, storage, clients and services into a
// single application object shared by the server binary and the tests.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/akumol/guardian/internal/clients/gemini"
	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/services/access"
	"github.com/akumol/guardian/internal/services/counselor"
	"github.com/akumol/guardian/internal/services/session"
	"github.com/akumol/guardian/internal/services/statement"
	"github.com/akumol/guardian/internal/storage"
	"github.com/akumol/guardian/internal/storage/notify"
)

// App holds all initialized services, clients and storage.
type App struct {
	Config            *common.Config
	Logger            *common.Logger
	Storage           interfaces.StorageManager
	Notifier          *notify.ProfileNotifier
	GeminiClient      interfaces.GeminiClient
	AccountService    interfaces.AccountService
	AccessResolver    *access.Resolver
	CounselorService  interfaces.CounselorService
	StatementImporter interfaces.StatementImporter
	StartupTime       time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, AKUMOL_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("AKUMOL_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "guardian.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/guardian.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, notifier, err := storage.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var geminiClient interfaces.GeminiClient
	if key := config.ResolveGeminiKey(); key != "" {
		client, err := gemini.NewClient(context.Background(), key,
			gemini.WithLogger(logger),
			gemini.WithModel(config.Gemini.Model),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize Gemini client")
		} else {
			geminiClient = client
		}
	} else {
		logger.Warn().Msg("Gemini API key not configured - counselor chat will be unavailable")
	}

	accountService := session.NewService(storageManager, logger, config.Auth)
	counselorService := counselor.NewService(storageManager, geminiClient, logger)
	statementImporter := statement.NewImporter(storageManager, logger)

	a := &App{
		Config:            config,
		Logger:            logger,
		Storage:           storageManager,
		Notifier:          notifier,
		GeminiClient:      geminiClient,
		AccountService:    accountService,
		AccessResolver:    access.NewResolver(),
		CounselorService:  counselorService,
		StatementImporter: statementImporter,
		StartupTime:       startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.GeminiClient != nil {
		a.GeminiClient.Close()
		a.GeminiClient = nil
	}
	if a.Storage != nil {
		a.Storage.Close()
		a.Storage = nil
	}
}
