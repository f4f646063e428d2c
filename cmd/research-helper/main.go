package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mikeboe/react-research/pkg/app"
	"github.com/mikeboe/react-research/pkg/config"
	"github.com/mikeboe/react-research/pkg/database"
	"github.com/mikeboe/react-research/pkg/research"
	"github.com/spf13/cobra"
)

var (
	topic        string
	insights     string
	words        int
	iterations   int
	results      int
	backend      string
	searchSource string
	verbose      bool
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "research-helper",
		Short: "A terminal-based research agent",
		Long:  `research-helper searches the web, reasons over what it found and keeps refining its query until it can write a context passage on the topic.`,
		Run: func(cmd *cobra.Command, args []string) {
			// Setup structured logging on stderr so stdout carries only the context
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			if !cmd.Flags().Changed("topic") {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Fprint(os.Stderr, "Enter research topic: ")
				input, _ := reader.ReadString('\n')
				topic = strings.TrimSpace(input)

				fmt.Fprint(os.Stderr, "Enter additional insights (optional): ")
				input, _ = reader.ReadString('\n')
				insights = strings.TrimSpace(input)
			}
			if strings.TrimSpace(topic) == "" {
				slog.Error("Topic cannot be empty")
				os.Exit(1)
			}

			if backend != "" {
				cfg.Rag.Backend = strings.ToLower(backend)
			}
			if searchSource != "" {
				cfg.SearchProvider = strings.ToLower(searchSource)
			}

			ctx := context.Background()

			var db *database.PostgresDB
			if cfg.Rag.Backend == "pgvector" {
				var err error
				db, err = database.NewPostgresDB(ctx, cfg.DatabaseURL)
				if err != nil {
					slog.Error("Failed to connect to database", "error", err)
					os.Exit(1)
				}
				defer db.Close()
			}

			engine, err := app.NewEngine(ctx, cfg, db, logger)
			if err != nil {
				slog.Error("Error initializing engine", "error", err)
				os.Exit(1)
			}

			req := app.Defaults(cfg)
			req.Topic = topic
			req.UserInsights = insights
			if words > 0 {
				req.DesiredWords = words
			}
			if iterations > 0 {
				req.IterationCap = iterations
			}
			if results > 0 {
				req.ResultCount = results
			}

			slog.Info("Starting research", "topic", req.Topic, "search", cfg.SearchProvider, "backend", cfg.Rag.Backend)
			session := engine.Run(ctx, req)
			if session.Context == "" {
				slog.Error("Research produced no context", "rounds", len(session.Rounds), "evidence", len(session.Evidence))
				os.Exit(1)
			}

			fmt.Println(session.Context)
		},
	}

	rootCmd.Flags().StringVarP(&topic, "topic", "t", "", "The research topic")
	rootCmd.Flags().StringVarP(&insights, "insights", "i", "", "Additional focus for the research")
	rootCmd.Flags().IntVarP(&words, "words", "w", 0, fmt.Sprintf("Approximate length of the context in words (default %d)", research.DefaultDesiredWords))
	rootCmd.Flags().IntVarP(&iterations, "iterations", "n", 0, fmt.Sprintf("Maximum number of search rounds (default %d)", research.DefaultIterationCap))
	rootCmd.Flags().IntVarP(&results, "results", "r", 0, fmt.Sprintf("Search results per round (default %d)", research.DefaultResultCount))
	rootCmd.Flags().StringVarP(&backend, "backend", "b", "", "Evidence backend: memory or pgvector")
	rootCmd.Flags().StringVarP(&searchSource, "search", "s", "", "Search provider: google, tavily or arxiv")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log reasoning output")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
