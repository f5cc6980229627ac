package main

import (
	"errors"
	"io/fs"
	"os"

	log "github.com/go-pkgz/lgr"
	"github.com/spf13/cobra"

	"cachelab/internal/config"
)

type app struct {
	configPath string
	debug      bool
	cfg        config.Config
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "cachelab",
		Short:         "Inspect and edit cached HTTP responses",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", getenvDefault(config.EnvPath, "cachelab.yaml"), "path to cachelab.yaml or .toml")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newServeCommand(a), newListCommand(a), newEditCommand(a))
	return cmd
}

// init loads the config, falling back to defaults when the file does not
// exist, and sets up logging.
func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	case err != nil:
		log.Printf("[ERROR] load config: %v", err)
		return err
	}
	a.cfg = cfg

	opts := []log.Option{log.Msec, log.LevelBraces}
	if a.debug || cfg.Logging.Debug {
		opts = append(opts, log.Debug)
	}
	log.Setup(opts...)
	if err != nil {
		log.Printf("[DEBUG] %s not found, using defaults", a.configPath)
	}
	return nil
}

func getenvDefault(name, def string) string {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	return v
}
