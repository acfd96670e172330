package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	cfgPkg "github.com/xhad/bmrcheck/pkg/config"
	"github.com/xhad/bmrcheck/pkg/logging"
	"go.uber.org/zap"
)

// options carries the persistent flags and what is built from them before
// any subcommand runs.
type options struct {
	configPath string
	provider   string
	ollamaURL  string
	model      string
	backend    string
	kbPath     string
	logLevel   string

	cfg    *cfgPkg.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&options{}).ExecuteContext(ctx); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bmrcheck",
		Short: "Check executed batch manufacturing records against a master record",
		Long: `bmrcheck extracts the tables of an executed batch manufacturing record,
asks a language model which parameters need verification, retrieves the
matching master record text and reports every parameter that deviates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config file")
	flags.StringVar(&opts.provider, "provider", "", "Model provider (ollama or googleai)")
	flags.StringVar(&opts.ollamaURL, "ollama-url", "", "Ollama server URL")
	flags.StringVar(&opts.model, "model", "", "Generative model to use")
	flags.StringVar(&opts.backend, "backend", "", "Knowledge base backend (flat or pgvector)")
	flags.StringVar(&opts.kbPath, "kb", "", "Base path of the flat knowledge base files")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newCheckCmd(opts), newExtractCmd(opts), newKBuildCmd(opts), newSummaryCmd(opts))
	return rootCmd
}

// load reads the config file, applies flag overrides and validates the result.
// Flags are applied before defaults so that provider-dependent defaults
// follow --provider.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := cfgPkg.LoadConfig(o.configPath, o.flagOverrides(cmd))
	if err != nil {
		return err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration: %d error(s)", len(errs))
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	o.cfg = cfg
	o.logger = logger
	return nil
}

// flagOverrides copies the flags set on the command line into the config.
func (o *options) flagOverrides(cmd *cobra.Command) cfgPkg.Override {
	flags := cmd.Flags()
	return func(cfg *cfgPkg.Config) {
		if flags.Changed("provider") {
			cfg.LLM.Provider = o.provider
		}
		if flags.Changed("ollama-url") {
			cfg.LLM.BaseURL = o.ollamaURL
		}
		if flags.Changed("model") {
			cfg.LLM.Model = o.model
		}
		if flags.Changed("backend") {
			cfg.KnowledgeBase.Backend = o.backend
		}
		if flags.Changed("kb") {
			cfg.KnowledgeBase.Path = o.kbPath
		}
		if flags.Changed("log-level") {
			cfg.Log.Level = o.logLevel
		}
	}
}
