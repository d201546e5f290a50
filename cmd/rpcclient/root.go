package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/rpcclient/config"
	"github.com/kbukum/rpcclient/logger"
	"github.com/kbukum/rpcclient/observability"
	"github.com/kbukum/rpcclient/rpc"
)

// appConfig is the file/env layout read by LoadConfig.
type appConfig struct {
	Client    rpc.Config           `mapstructure:"client"`
	Log       logger.Config        `mapstructure:"log"`
	Telemetry observability.Config `mapstructure:"telemetry"`
}

type globalFlags struct {
	ConfigFile   string
	BaseURL      string
	LogLevel     string
	OTLPEndpoint string
}

var (
	flags    globalFlags
	cfg      appConfig
	shutdown observability.ShutdownFunc
)

var rootCmd = &cobra.Command{
	Use:           "rpcclient",
	Short:         "Call JSON endpoints and follow event streams",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setup(cmd.Context())
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if serr := shutdown(ctx); serr != nil {
			logger.Warn("telemetry shutdown failed", logger.Fields(logger.FieldError, serr.Error()))
		}
		cancel()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigFile, "config", "c", "", "config file (default: ./config/rpcclient.yml or the user config dir)")
	pf.StringVar(&flags.BaseURL, "base-url", "", "service base URL, overrides client.base_url")
	pf.StringVar(&flags.LogLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&flags.OTLPEndpoint, "otlp-endpoint", "", "OTLP/HTTP collector endpoint, enables tracing and metrics")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(ctx context.Context) error {
	opts := []config.LoaderOption{
		config.WithEnvPrefix("RPCCLIENT"),
		config.WithDefaults(map[string]any{
			"client.timeout":         "30s",
			"telemetry.service_name": "rpcclient",
		}),
	}
	if flags.ConfigFile != "" {
		opts = append(opts, config.WithConfigFile(flags.ConfigFile))
	}
	if err := config.LoadConfig("rpcclient", &cfg, opts...); err != nil {
		return err
	}
	applyFlags(&cfg, flags)

	cfg.Log.ApplyDefaults()
	if err := cfg.Log.Validate(); err != nil {
		return err
	}
	if err := config.Validate(&cfg); err != nil {
		return err
	}
	logger.Init(cfg.Log)

	var err error
	shutdown, err = observability.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func applyFlags(c *appConfig, f globalFlags) {
	if f.BaseURL != "" {
		c.Client.BaseURL = f.BaseURL
	}
	if f.LogLevel != "" {
		c.Log.Level = f.LogLevel
	}
	if f.OTLPEndpoint != "" {
		c.Telemetry.Endpoint = f.OTLPEndpoint
	}
}

func newClient() (*rpc.Client, error) {
	return rpc.NewFromConfig(cfg.Client)
}
