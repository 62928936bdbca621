package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/botdeck/botdeck/internal/config"
	"github.com/botdeck/botdeck/internal/db"
	"github.com/botdeck/botdeck/internal/db/mongodb"
	"github.com/botdeck/botdeck/internal/db/sqlite"
	"github.com/botdeck/botdeck/internal/llm"
	"github.com/botdeck/botdeck/internal/llm/anthropic"
	"github.com/botdeck/botdeck/internal/llm/google"
	"github.com/botdeck/botdeck/internal/llm/ollama"
	"github.com/botdeck/botdeck/internal/llm/openai"
	"github.com/botdeck/botdeck/internal/logger"
	"github.com/botdeck/botdeck/internal/models"
	"github.com/botdeck/botdeck/internal/scheduler"
	"github.com/botdeck/botdeck/internal/services"
)

var (
	cfgFile     string
	cfg         *config.Config
	configStore db.ConfigStore
	telemetry   db.TelemetryStore
	llmRegistry *llm.Registry

	resolverService *services.ResolverService
	sessionService  *services.SessionService
	chatService     *services.ChatService
	metricsService  *services.MetricsService
	insightsService *services.InsightsService
	sched           *scheduler.Scheduler
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "botdeck",
	Short: "Multi-tenant chatbot platform",
	Long: `Botdeck hosts configurable customer support chatbots for multiple tenants.

Each chatbot inherits operator-wide defaults, narrows them with its own prompt
and knowledge base, and streams answers from the configured completion model.
Sessions and messages are recorded as telemetry and rolled up into daily
per-chatbot metrics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for the init command itself
		if cmd.Name() == "init" {
			return nil
		}

		if cfgFile == "" {
			cfgFile = config.GetConfigPath()
		}

		if !config.Exists(cfgFile) {
			return fmt.Errorf("configuration file not found. Run 'botdeck init' to create one")
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cfg.LogLevel != "" {
			logger.SetLevel(logger.ParseLogLevel(cfg.LogLevel))
		}

		configStore, err = sqlite.New(&models.Config{
			Provider: cfg.SQLDatabase.Provider,
			URI:      cfg.SQLDatabase.URI,
			Database: cfg.SQLDatabase.Database,
			Options:  cfg.SQLDatabase.Options,
		})
		if err != nil {
			return fmt.Errorf("failed to create config store: %w", err)
		}
		if err := configStore.Connect(context.Background()); err != nil {
			return fmt.Errorf("failed to connect to config store: %w", err)
		}

		telemetry, err = mongodb.New(&models.Config{
			Provider: cfg.NoSQLDatabase.Provider,
			URI:      cfg.NoSQLDatabase.URI,
			Database: cfg.NoSQLDatabase.Database,
			Options:  cfg.NoSQLDatabase.Options,
		})
		if err != nil {
			return fmt.Errorf("failed to create telemetry store: %w", err)
		}
		if err := telemetry.Connect(context.Background()); err != nil {
			return fmt.Errorf("failed to connect to telemetry store: %w", err)
		}

		llmRegistry = buildRegistry(cfg.Providers)

		resolverService = services.NewResolverService(configStore)
		sessionService = services.NewSessionService(configStore, telemetry)
		chatService = services.NewChatService(llmRegistry, resolverService, sessionService, telemetry)
		metricsService = services.NewMetricsService(telemetry)
		insightsService = services.NewInsightsService(configStore, telemetry)
		sched = scheduler.New(configStore, metricsService, cfg.Rollup.CronExpr, cfg.Rollup.BackfillDays)

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		if telemetry != nil {
			if err := telemetry.Disconnect(ctx); err != nil {
				return err
			}
		}
		if configStore != nil {
			return configStore.Disconnect(ctx)
		}
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.botdeck/config.yaml)")

	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(aggregateCmd)
	rootCmd.AddCommand(insightsCmd)
}

// buildRegistry registers one provider per configured credential set. Ollama
// never needs a key, so it is always registered.
func buildRegistry(providers config.ProviderConfig) *llm.Registry {
	registry := llm.NewRegistry()

	if providers.OpenAI.APIKey != "" || providers.OpenAI.BaseURL != "" {
		registry.Register(openai.New(providers.OpenAI.APIKey, providers.OpenAI.BaseURL))
	}
	if providers.Anthropic.APIKey != "" {
		registry.Register(anthropic.New(providers.Anthropic.APIKey, providers.Anthropic.BaseURL))
	}
	if providers.Google.APIKey != "" {
		registry.Register(google.New(providers.Google.APIKey))
	}
	registry.Register(ollama.New(providers.Ollama.BaseURL))

	return registry
}
