package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/xdgkit/notify"
)

const configRelPath = "notify-example/config.toml"

// Config holds the defaults applied to every notification the example sends.
type Config struct {
	AppName     string `koanf:"app_name"`
	AppIcon     string `koanf:"app_icon"`
	Destination string `koanf:"destination"` // bus name of the notification server
	TimeoutMS   int    `koanf:"timeout_ms"`  // -1 lets the server decide, 0 never expires
	Urgency     string `koanf:"urgency"`     // "low", "normal" or "critical"
	Sound       string `koanf:"sound"`       // sound theme name
}

func defaultConfig() *Config {
	return &Config{
		AppName:   "Test GO App",
		AppIcon:   "mail-unread",
		TimeoutMS: 5000,
		Urgency:   "critical",
		Sound:     "trash-empty",
	}
}

// LoadConfig reads $XDG_CONFIG_HOME/notify-example/config.toml (or the first
// match in $XDG_CONFIG_DIRS) over the defaults. A missing file is not an error.
func LoadConfig() (*Config, error) {
	path, err := xdg.SearchConfigFile(configRelPath)
	if err != nil {
		return defaultConfig(), nil
	}
	return loadConfigFile(path)
}

func loadConfigFile(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if _, err := cfg.urgency(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) urgency() (notify.Urgency, error) {
	switch strings.ToLower(c.Urgency) {
	case "low":
		return notify.UrgencyLow, nil
	case "", "normal":
		return notify.UrgencyNormal, nil
	case "critical":
		return notify.UrgencyCritical, nil
	default:
		return notify.UrgencyNormal, fmt.Errorf("unknown urgency %q", c.Urgency)
	}
}

func (c *Config) expireTimeout() time.Duration {
	if c.TimeoutMS < 0 {
		return notify.ExpireTimeoutSetByNotificationServer
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// Apply fills in the configured defaults on n. n is left untouched if the
// config is invalid.
func (c *Config) Apply(n *notify.Notification) error {
	u, err := c.urgency()
	if err != nil {
		return err
	}
	n.AppName = c.AppName
	n.AppIcon = c.AppIcon
	n.ExpireTimeout = c.expireTimeout()
	n.SetUrgency(u)
	if c.Sound != "" {
		n.AddHint(notify.HintSoundWithName(c.Sound))
	}
	return nil
}

// Options returns the notifier options implied by the config.
func (c *Config) Options() []notify.Option {
	var opts []notify.Option
	if c.Destination != "" {
		opts = append(opts, notify.WithDestination(c.Destination))
	}
	return opts
}
