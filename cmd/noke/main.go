package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/noke/internal/config"
	"github.com/dropDatabas3/noke/internal/http/server"
	"github.com/dropDatabas3/noke/internal/observability/logger"
	"github.com/dropDatabas3/noke/internal/security/secretbox"
	tokens "github.com/dropDatabas3/noke/internal/security/token"

	// Los adapters se registran vía init()
	_ "github.com/dropDatabas3/noke/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/noke/internal/store/adapters/pg"
)

// version se pisa en build con -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		envFile    string
	)

	loadConfig := func() (*config.Config, error) {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("env file %s: %w", envFile, err)
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		logger.Init(logger.Config{
			Env:         cfg.App.Env,
			Level:       cfg.Log.Level,
			ServiceName: "noke",
			Version:     version,
		})
		return cfg, nil
	}

	root := &cobra.Command{
		Use:           "noke",
		Short:         "Backend de NoKe: autenticación de plugins con rolling keys",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("NOKE_CONFIG"), "ruta a config.yaml (env NOKE_CONFIG)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "ruta a .env (se ignora si no existe)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.Build(ctx, cfg, version)
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Genera SECRETBOX_MASTER_KEY y SESSION_SECRET nuevos",
		RunE: func(cmd *cobra.Command, _ []string) error {
			k := make([]byte, 32)
			if _, err := rand.Read(k); err != nil {
				return err
			}
			master := base64.StdEncoding.EncodeToString(k)
			// Validar que el formato sea el que acepta el server.
			if _, err := secretbox.FromString(master); err != nil {
				return err
			}
			session, err := tokens.GenerateSecret()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "SECRETBOX_MASTER_KEY=%s\nSESSION_SECRET=%s\n", master, session)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Muestra la versión",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	root.AddCommand(serveCmd, keygenCmd, versionCmd)
	return root
}
