// Package main is the kiku CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/kiku/internal/cli"
	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kiku/config.yaml"

// app carries the state shared by every subcommand once the root pre-run has resolved it.
type app struct {
	configPath string
	debug      bool
	output     string

	cfg     *config.Config
	cfgPath string
	format  cli.OutputFormat
	logger  *zap.Logger
}

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists. When neither exists, defaults are used with
// paths resolved against the current directory; the returned path is then empty.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if path != defaultConfigPath || !errors.Is(err, fs.ErrNotExist) {
		return nil, "", err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", err
	}
	return config.Default(cwd), "", nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "kiku",
		Short: "Semantic search over your documents, recordings and notes",
		Long: `kiku indexes PDF, DOCX, plain text and transcribed audio/video into a local
vector store and answers natural-language queries against it.

Examples:
  kiku index ~/Documents/meetings
  kiku search "when did we agree to move the launch"
  kiku ask "what was decided about the budget"
  kiku serve`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text or json")

	root.AddCommand(
		newIndexCmd(a),
		newExtractCmd(a),
		newSearchCmd(a),
		newAskCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newStatusCmd(a),
		newInitCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) setup() error {
	// A missing .env is normal.
	_ = godotenv.Load()

	format, err := cli.ParseFormat(a.output)
	if err != nil {
		return err
	}
	a.format = format

	cfg, path, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg, a.cfgPath = cfg, path

	logger, err := utils.NewLogger(cfg.Debug || a.debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	a.logger = logger
	a.logger.Debug("config loaded",
		zap.String("config_path", path),
		zap.String("store", cfg.Store.Path))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
