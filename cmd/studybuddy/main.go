package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Study-Buddy-University/study-buddy-backend/ai/agent"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/core/embedding"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/core/llm"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/metrics"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/retrieval"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/titlegen"
	"github.com/Study-Buddy-University/study-buddy-backend/ai/tools"
	"github.com/Study-Buddy-University/study-buddy-backend/internal/profile"
	"github.com/Study-Buddy-University/study-buddy-backend/internal/version"
	"github.com/Study-Buddy-University/study-buddy-backend/server"
	"github.com/Study-Buddy-University/study-buddy-backend/server/service/chat"
	"github.com/Study-Buddy-University/study-buddy-backend/store"
	"github.com/Study-Buddy-University/study-buddy-backend/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "studybuddy",
	Short: "An AI study assistant backend: chat over your documents with web search and calculation tools.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Load .env from the current directory when present.
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid profile", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}

		llmService, err := llm.NewService(&llm.Config{
			Provider: instanceProfile.LLMProvider,
			Model:    instanceProfile.LLMModel,
			APIKey:   instanceProfile.LLMAPIKey,
			BaseURL:  instanceProfile.LLMBaseURL,
			Timeout:  instanceProfile.LLMTimeout,
		})
		if err != nil {
			slog.Error("failed to create LLM service", "error", err)
			return
		}

		embeddingService, err := embedding.NewService(&embedding.Config{
			Model:      instanceProfile.EmbeddingModel,
			APIKey:     instanceProfile.EmbeddingAPIKey,
			BaseURL:    instanceProfile.EmbeddingBaseURL,
			Dimensions: instanceProfile.EmbeddingDimensions,
		})
		if err != nil {
			slog.Error("failed to create embedding service", "error", err)
			return
		}

		registry := tools.NewRegistry(tools.NewCalculatorTool())
		if instanceProfile.SearxngURL != "" {
			registry.Register(tools.NewWebSearchTool(instanceProfile.SearxngURL))
		} else {
			slog.Warn("SearXNG URL not configured, web search disabled")
		}

		exporter := metrics.NewExporter()

		documentSaver := chat.NewDocumentSaver(storeInstance, embeddingService)
		defer documentSaver.Close()

		engine := agent.NewEngine(agent.Config{
			LLM:             llmService,
			Registry:        registry,
			Metrics:         exporter,
			OnSearchResults: documentSaver.Enqueue,
		})

		gateway := retrieval.NewGateway(retrieval.NewStoreSearcher(storeInstance, embeddingService))

		chatService := chat.NewService(chat.Config{
			Store:   storeInstance,
			Engine:  engine,
			Gateway: gateway,
			Titles:  titlegen.NewGenerator(llmService),
			Metrics: exporter,
		})

		s := server.NewServer(instanceProfile, storeInstance, chatService, exporter)

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)

		if err := s.Start(ctx); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				slog.Error("failed to start server", "error", err)
				cancel()
			}
		}

		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8080)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8080, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("studybuddy")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("Study Buddy %s started successfully!\n", profile.Version)
	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	if profile.Addr == "" {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
