package actrec

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/actrec/internal/browser"
	"github.com/hazyhaar/actrec/internal/config"
	"github.com/hazyhaar/actrec/internal/sink"
	"github.com/hazyhaar/actrec/internal/store"
)

// Config is the service configuration. Re-exported from internal.
type Config = config.Config

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}

// BrowserConfig maps the browser section of cfg onto the manager config.
func BrowserConfig(cfg *Config, logger *slog.Logger) browser.Config {
	return browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		Mode:             browser.ParseMode(cfg.Browser.Mode),
		Xvfb:             cfg.Browser.Xvfb,
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Stealth:          cfg.Browser.Stealth,
		UserDataDir:      cfg.Browser.UserDataDir,
		NavigateTimeout:  cfg.Browser.NavigateTimeout,
		Logger:           logger,
	}
}

// BuildSinks creates the sinks listed in cfg. stdout is where stdout sinks
// write (nil for os.Stdout). When store.path is set every session is also
// archived there, and the archive is returned for lookups; it is closed
// with the sinks.
func BuildSinks(cfg *Config, stdout io.Writer, logger *slog.Logger) ([]sink.Sink, *store.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var archive *sink.Store
	if cfg.Store.Path != "" {
		var err error
		archive, err = sink.OpenStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("actrec: open store: %w", err)
		}
	}

	var sinks []sink.Sink
	for _, sc := range cfg.Sinks {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, sink.NewStdout(stdout))
		case "file":
			sinks = append(sinks, sink.NewFile(sc.Path))
		case "webhook":
			sinks = append(sinks, sink.NewWebhook(sc.URL,
				sink.WithWebhookRetries(sc.Retries),
				sink.WithWebhookLogger(logger)))
		case "store":
			// Added once below.
		default:
			if archive != nil {
				archive.Close()
			}
			return nil, nil, fmt.Errorf("actrec: unknown sink type %q", sc.Type)
		}
	}
	if archive == nil {
		return sinks, nil, nil
	}
	return append(sinks, archive), archive.Archive(), nil
}

// NewFromConfig builds a Service recording in Chrome as described by cfg.
// Closing the service closes the browser and the sinks.
func NewFromConfig(cfg *Config, logger *slog.Logger, extra ...Option) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sinks, st, err := BuildSinks(cfg, nil, logger)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithLogger(logger),
		WithSinks(sinks...),
		WithEvents(cfg.EventTypes()...),
	}
	if st != nil {
		opts = append(opts, WithArchive(st))
	}
	opts = append(opts, extra...)

	return New(NewBrowserBackend(BrowserConfig(cfg, logger)), opts...), nil
}
