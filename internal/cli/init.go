package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/botdeck/botdeck/internal/config"
	"github.com/botdeck/botdeck/internal/db/mongodb"
	"github.com/botdeck/botdeck/internal/db/sqlite"
	"github.com/botdeck/botdeck/internal/models"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize botdeck configuration",
	Long:  `Interactive wizard to set up botdeck configuration including databases and provider credentials.`,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("🚀 Welcome to Botdeck Setup")
	fmt.Println("===========================")
	fmt.Println()

	// Check if config already exists
	configPath := config.GetConfigPath()
	if config.Exists(configPath) {
		fmt.Printf("Configuration file already exists at: %s\n", configPath)
		confirmed, err := promptYesNo(reader, "Do you want to overwrite it? (y/N): ")
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Setup cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()

	// Config database
	fmt.Println("\n📊 Configuration Database (SQLite)")
	fmt.Println("-----------------------------------")

	sqlitePath, err := promptOptional(reader, "SQLite database path [botdeck.db]: ", "botdeck.db")
	if err != nil {
		return err
	}
	cfg.SQLDatabase.URI = sqlitePath

	// Telemetry database
	fmt.Println("\n📈 Telemetry Database (MongoDB)")
	fmt.Println("--------------------------------")

	uri, err := promptOptional(reader, "MongoDB URI [mongodb://localhost:27017]: ", "mongodb://localhost:27017")
	if err != nil {
		return err
	}
	cfg.NoSQLDatabase.URI = uri

	dbName, err := promptOptional(reader, "MongoDB database name [botdeck]: ", "botdeck")
	if err != nil {
		return err
	}
	cfg.NoSQLDatabase.Database = dbName

	// Provider credentials
	fmt.Println("\n🤖 Completion Providers")
	fmt.Println("------------------------")
	fmt.Println("Leave a key empty to skip that provider.")

	openaiKey, err := promptOptional(reader, "OpenAI API key []: ", "")
	if err != nil {
		return err
	}
	cfg.Providers.OpenAI.APIKey = openaiKey

	anthropicKey, err := promptOptional(reader, "Anthropic API key []: ", "")
	if err != nil {
		return err
	}
	cfg.Providers.Anthropic.APIKey = anthropicKey

	googleKey, err := promptOptional(reader, "Google API key []: ", "")
	if err != nil {
		return err
	}
	cfg.Providers.Google.APIKey = googleKey

	ollamaURL, err := promptWithRetry(reader, "Ollama base URL [http://localhost:11434]: ", validateBaseURL)
	if err != nil {
		return err
	}
	cfg.Providers.Ollama.BaseURL = ollamaURL

	// Rollup schedule
	fmt.Println("\n⏰ Metric Rollup Schedule")
	fmt.Println("--------------------------")

	cronExpr, err := promptWithRetry(reader, "Rollup cron expression [15 0 * * *]: ", func(input string) (string, error) {
		if input == "" {
			return "15 0 * * *", nil
		}
		return validateCronExpression(input)
	})
	if err != nil {
		return err
	}
	cfg.Rollup.CronExpr = cronExpr

	// Test database connections
	fmt.Println("\n🔌 Testing database connections...")
	ctx := context.Background()

	sqlStore, err := sqlite.New(&models.Config{
		Provider: cfg.SQLDatabase.Provider,
		URI:      cfg.SQLDatabase.URI,
		Database: cfg.SQLDatabase.Database,
	})
	if err != nil {
		return fmt.Errorf("failed to create config store: %w", err)
	}
	if err := sqlStore.Connect(ctx); err != nil {
		fmt.Printf("❌ Failed to open SQLite database: %v\n", err)
		return err
	}
	defer sqlStore.Disconnect(ctx)

	mongoStore, err := mongodb.New(&models.Config{
		Provider: cfg.NoSQLDatabase.Provider,
		URI:      cfg.NoSQLDatabase.URI,
		Database: cfg.NoSQLDatabase.Database,
	})
	if err != nil {
		return fmt.Errorf("failed to create telemetry store: %w", err)
	}
	if err := mongoStore.Connect(ctx); err != nil {
		fmt.Printf("❌ Failed to connect to MongoDB: %v\n", err)
		fmt.Println("\nPlease check your database configuration and try again.")
		return err
	}
	defer mongoStore.Disconnect(ctx)

	if err := mongoStore.Ping(ctx); err != nil {
		fmt.Printf("❌ Failed to ping MongoDB: %v\n", err)
		return err
	}

	fmt.Println("✅ Database connections successful!")

	// Save configuration
	fmt.Println("\n💾 Saving configuration...")
	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✅ Configuration saved to: %s\n", configPath)

	// Summary
	fmt.Println("\n📋 Configuration Summary")
	fmt.Println("========================")
	fmt.Printf("Config store: sqlite (%s)\n", cfg.SQLDatabase.URI)
	fmt.Printf("Telemetry store: mongodb (%s/%s)\n", cfg.NoSQLDatabase.URI, cfg.NoSQLDatabase.Database)
	fmt.Printf("OpenAI key: %s\n", maskSensitiveData(cfg.Providers.OpenAI.APIKey, "*"))
	fmt.Printf("Anthropic key: %s\n", maskSensitiveData(cfg.Providers.Anthropic.APIKey, "*"))
	fmt.Printf("Google key: %s\n", maskSensitiveData(cfg.Providers.Google.APIKey, "*"))
	fmt.Printf("Rollup cron: %s\n", cfg.Rollup.CronExpr)
	fmt.Println()
	fmt.Println("🎉 Setup complete!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run migrations: botdeck migrate up")
	fmt.Println("  2. Start the server: botdeck serve")
	fmt.Println("  3. Create a chatbot: POST /api/v1/chatbots")

	return nil
}
