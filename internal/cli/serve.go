package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tansive/metacatalog/internal/catalogsrv/auth"
	"github.com/tansive/metacatalog/internal/catalogsrv/catalog"
	"github.com/tansive/metacatalog/internal/catalogsrv/config"
	"github.com/tansive/metacatalog/internal/catalogsrv/entitystore"
	"github.com/tansive/metacatalog/internal/catalogsrv/metalake"
	"github.com/tansive/metacatalog/internal/catalogsrv/metrics"
	"github.com/tansive/metacatalog/internal/catalogsrv/security"
	"github.com/tansive/metacatalog/internal/catalogsrv/server"
	"github.com/tansive/metacatalog/internal/common/logtrace"
	"github.com/tansive/metacatalog/pkg/api"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the catalog server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadConfig(configFile); err != nil {
				return err
			}
			cfg := config.Config()
			if port != "" {
				cfg.ServerPort = port
			}
			if err := logtrace.InitLogger(cfg.LogLevel); err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on, overrides server_port")
	return cmd
}

func serve(ctx context.Context, cfg *config.ConfigParam) error {
	slog := log.With().Str("state", "init").Logger()
	slog.Info().Str("config_file", configFile).Str("store", cfg.EntityStore.Type).Msg("starting catalog server")

	store, err := openStore(ctx, cfg.EntityStore)
	if err != nil {
		slog.Error().Err(err).Msg("unable to open entity store")
		return err
	}
	defer store.Close()

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		slog.Error().Err(err).Msg("unable to configure authentication")
		return err
	}
	if !verifier.Enabled() {
		slog.Warn().Msg("authentication is disabled; requests carry no caller identity")
	}

	metrics.Init(api.ServerVersion)
	mgr := metalake.NewManager(catalog.Environment{
		Store:          store,
		Authenticators: security.NewKerberosFactory(cfg.Kerberos.Krb5Conf),
	})
	defer mgr.Close()

	s, err := server.CreateNewServer(mgr, verifier)
	if err != nil {
		slog.Error().Err(err).Msg("unable to create server")
		return err
	}
	s.MountHandlers()
	slog.Info().Strs("providers", catalog.Providers()).Msg("catalog providers registered")
	return s.ListenAndServe(ctx)
}

func openStore(ctx context.Context, c config.EntityStore) (entitystore.Store, error) {
	switch c.Type {
	case config.StorePostgreSQL:
		return entitystore.OpenPostgres(ctx, c.DSN)
	case config.StoreBadger, "":
		if c.Path == "" {
			log.Warn().Msg("entity store is in memory; metadata is lost on exit")
		}
		return entitystore.OpenBadger(c.Path)
	}
	return nil, fmt.Errorf("unknown entity store type %q", c.Type)
}
