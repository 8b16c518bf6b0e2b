package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/syncraft-backend/internal/app"
	"github.com/yungbote/syncraft-backend/internal/data/db"
	"github.com/yungbote/syncraft-backend/internal/pkg/logger"
	"github.com/yungbote/syncraft-backend/internal/services"
)

var configFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "syncraft",
		Short:         "Branching conversation tree backend",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
					return err
				}
			}
			return app.LoadEnv()
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config overlay (same as CONFIG_FILE)")
	root.AddCommand(serveCmd(), migrateCmd(), tokenCmd(), mcpCmd())
	return root
}

func withLogger(fn func(ctx context.Context, log *logger.Logger) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		log, err := app.NewLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return fn(ctx, log)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: withLogger(func(ctx context.Context, log *logger.Logger) error {
			a, err := app.New(ctx, log)
			if err != nil {
				log.Error("Failed to initialize app", "error", err)
				return err
			}
			defer a.Close()
			if err := a.Run(ctx); err != nil {
				log.Error("Server stopped", "error", err)
				return err
			}
			log.Info("Server stopped")
			return nil
		}),
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: withLogger(func(ctx context.Context, log *logger.Logger) error {
			store, err := db.NewFromEnv(log)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.AutoMigrateAll(); err != nil {
				return err
			}
			log.Info("Migrations complete", "driver", store.Driver())
			return nil
		}),
	}
}

func tokenCmd() *cobra.Command {
	var (
		userID   string
		username string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for local development",
		RunE: withLogger(func(ctx context.Context, log *logger.Logger) error {
			cfg := app.LoadConfig(log)
			auth, err := services.NewAuthService(log, services.AuthConfig{
				Secret:    cfg.JWTSecret,
				Issuer:    cfg.JWTIssuer,
				AccessTTL: cfg.AccessTokenTTL,
			})
			if err != nil {
				return err
			}
			tok, err := auth.IssueToken(userID, username, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		}),
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (token subject)")
	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to ACCESS_TOKEN_TTL)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the conversation tools over MCP stdio",
		RunE: withLogger(func(ctx context.Context, log *logger.Logger) error {
			a, err := app.New(ctx, log)
			if err != nil {
				log.Error("Failed to initialize app", "error", err)
				return err
			}
			defer a.Close()
			return a.MCPServer().ServeStdio()
		}),
	}
}
