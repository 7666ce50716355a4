package setup

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/citebot/pkg/config"
	"github.com/papercomputeco/citebot/pkg/logger"
)

// Names of the persistent flags registered on the root command.
const (
	ConfigFlag = "config"
	DebugFlag  = "debug"
)

// AddPersistentFlags registers the flags every subcommand reads through Load.
func AddPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP(ConfigFlag, "c", "", "Path to the citebot TOML config file")
	cmd.PersistentFlags().Bool(DebugFlag, false, "Enable debug logging")
}

// Load reads the config file named by the --config flag and builds the
// logger selected by --debug.
func Load(cmd *cobra.Command) (*config.Config, string, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString(ConfigFlag)
	debug, _ := cmd.Flags().GetBool(DebugFlag)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", nil, err
	}

	return cfg, path, logger.NewLogger(debug), nil
}

// SettingsSource watches the config file for per-turn settings when one is
// given and otherwise reads the environment over cfg.Bot. The returned stop
// function releases the watcher.
func SettingsSource(ctx context.Context, path string, cfg *config.Config, log *zap.Logger) (config.Source, func(), error) {
	if path == "" {
		return config.EnvSource{Base: cfg.Bot}, func() {}, nil
	}

	w, err := config.NewWatcher(path, config.Default().Bot, log)
	if err != nil {
		return nil, nil, fmt.Errorf("could not watch config: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	go w.Run(ctx)

	return w, func() {
		cancel()
		w.Close()
	}, nil
}
