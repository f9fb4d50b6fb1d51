package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Vishalytig/shortsbot/internal/config"
	"github.com/Vishalytig/shortsbot/internal/logging"
)

// loadConfig reads the config file and environment, then applies the
// persistent logging flags. It does not validate.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, _, _, err := config.Load(strings.TrimSpace(o.configPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if v := strings.TrimSpace(o.logLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(o.logFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, func() error, error) {
	logger, closeFn, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: w,
		File:   cfg.Paths.LogFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, closeFn, nil
}
