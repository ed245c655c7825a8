package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phuslu/log"

	"github.com/YenHsinCHEN/MopsDownloader/internal/config"
	"github.com/YenHsinCHEN/MopsDownloader/internal/settings"
)

// loadConfig layers the config file, the environment (after loading
// envFile) and flag overrides on top of the defaults.
func loadConfig(configPath, envFile string, override config.Config) (config.Config, error) {
	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return config.Config{}, err
		}
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return config.Config{}, err
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openSettings returns the preference store at path, or at the default
// location if path is empty.
func openSettings(path string) (*settings.Store, error) {
	if path == "" {
		var err error
		path, err = settings.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return settings.Open(path), nil
}

// saveDirectory picks the save location: the configured value if set,
// otherwise the persisted preference.
func saveDirectory(cfg config.Config, settingsPath string, logger *log.Logger) string {
	if cfg.SaveDirectory != "" {
		return cfg.SaveDirectory
	}

	store, err := openSettings(settingsPath)
	if err != nil {
		logger.Warn().Err(err).Msg("cannot locate settings")
		return ""
	}
	dir, err := store.SaveDirectory()
	if err != nil {
		logger.Warn().Err(err).Str("path", store.Path()).Msg("cannot read settings")
		return ""
	}
	return dir
}

func newLogger(level string) *log.Logger {
	return &log.Logger{
		Level:      log.ParseLevel(level),
		TimeFormat: "15:04:05",
		Writer: &log.ConsoleWriter{
			Writer:         stderr,
			EndWithMessage: true,
		},
	}
}

// interruptContext returns a context cancelled on SIGINT or SIGTERM.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func fail(format string, args ...any) {
	fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
}
