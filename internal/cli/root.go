package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"trivia-board-service/internal/config"
)

// options carries the persistent flags shared by every subcommand.
type options struct {
	configPath string
	port       string
	env        *viper.Viper
}

// Execute runs the CLI.
func Execute() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env", "error", err)
	}
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	v := newViper()
	opts := &options{env: v}

	cmd := &cobra.Command{
		Use:           "trivia-board",
		Short:         "Two-team trivia board with live scoreboards",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	fs := cmd.PersistentFlags()
	fs.StringVar(&opts.configPath, "config", "config/config.yaml", "path to YAML config (env: TRIVIA_CONFIG)")
	fs.StringVar(&opts.port, "port", "", "port to listen on, overrides server.port (env: TRIVIA_PORT)")
	cmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		var err error
		fs.VisitAll(func(f *pflag.Flag) {
			_ = v.BindPFlag(f.Name, f)
			_ = v.BindEnv(f.Name)
			if !f.Changed && v.IsSet(f.Name) {
				if setErr := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); setErr != nil && err == nil {
					err = setErr
				}
			}
		})
		return err
	}

	cmd.AddCommand(NewStartCmd(opts))
	cmd.AddCommand(NewMigrateCmd(opts))
	cmd.AddCommand(NewSeedCmd(opts))
	cmd.AddCommand(NewBoardCmd(opts))
	cmd.AddCommand(NewHashPasswordCmd())
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TRIVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// load reads the config file and overlays TRIVIA_* environment variables and flags.
func (o *options) load() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	for _, key := range config.Keys() {
		_ = o.env.BindEnv(key)
	}
	err = cfg.Apply(func(key string) (string, bool) {
		if !o.env.IsSet(key) {
			return "", false
		}
		return o.env.GetString(key), true
	})
	if err != nil {
		return cfg, fmt.Errorf("environment overrides: %w", err)
	}
	if o.port != "" {
		cfg.Server.Port = o.port
	}
	return cfg, nil
}
