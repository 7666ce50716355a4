package servecmder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/citebot/api"
	"github.com/papercomputeco/citebot/bot"
	"github.com/papercomputeco/citebot/cmd/citebot/setup"
)

const serveLongDesc string = `Run the bot's HTTP channel.

POST /api/messages accepts Bot Framework style activities and answers
with the reply activities. Transcripts are kept in the configured
storage backend; /conversations exposes them and /mcp serves the
send_message tool over MCP streamable HTTP.

Examples:
  citebot serve
  citebot serve --config citebot.toml --listen :8080`

const serveShortDesc string = "Run the HTTP channel"

type serveCommander struct {
	listen  string
	backend string
	path    string
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.listen, "listen", "l", "", "Address to listen on (overrides server.listen)")
	cmd.Flags().StringVar(&cmder.backend, "backend", "", "Storage backend: memory, sqlite, bolt or firestore")
	cmd.Flags().StringVar(&cmder.path, "db", "", "Path to the sqlite or bolt database")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, path, log, err := setup.Load(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	if c.listen != "" {
		cfg.Server.ListenAddr = c.listen
	}
	if c.backend != "" {
		cfg.Storage.Backend = c.backend
	}
	if c.path != "" {
		cfg.Storage.Path = c.path
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := setup.OpenStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer store.Close()

	completions, err := setup.NewCompletions(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("could not create %s completion client: %w", cfg.Provider, err)
	}

	settings, stopSettings, err := setup.SettingsSource(ctx, path, cfg, log)
	if err != nil {
		return err
	}
	defer stopSettings()

	server, err := api.NewServer(api.Config{
		ListenAddr: cfg.Server.ListenAddr,
		BotID:      cfg.Server.BotID,
	}, bot.New(store, completions, settings, log), store, log)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", cfg.Server.ListenAddr, err)
	}

	log.Info("citebot starting",
		zap.String("listen", ln.Addr().String()),
		zap.String("provider", cfg.Provider),
		zap.String("storage", cfg.Storage.Backend),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.RunWithListener(ln)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}
}
