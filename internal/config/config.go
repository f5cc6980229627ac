// Package config loads cachelab settings from YAML or TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "CACHELAB_CONFIG"

type Config struct {
	Server struct {
		Port int `yaml:"port" toml:"port" validate:"min=0,max=65535"`
		// Origin is where the lab server fetches misses from; empty disables
		// origin fetching.
		Origin string `yaml:"origin" toml:"origin" validate:"omitempty,url"`
		Seed   string `yaml:"seed" toml:"seed"`
	} `yaml:"server" toml:"server"`

	Storage struct {
		Path string `yaml:"path" toml:"path"`
		Disk struct {
			Max string `yaml:"max" toml:"max"`
		} `yaml:"disk" toml:"disk"`
	} `yaml:"storage" toml:"storage"`

	Gateway struct {
		BaseURL string `yaml:"baseURL" toml:"baseURL" validate:"required,url"`
		Timeout string `yaml:"timeout" toml:"timeout"`
	} `yaml:"gateway" toml:"gateway"`

	Editor struct {
		HistorySize   int    `yaml:"historySize" toml:"historySize" validate:"min=0,max=10000"`
		ValidateDelay string `yaml:"validateDelay" toml:"validateDelay"`
	} `yaml:"editor" toml:"editor"`

	Logging struct {
		Debug         bool   `yaml:"debug" toml:"debug"`
		LogStatsEvery string `yaml:"logStatsEvery" toml:"logStatsEvery"`
	} `yaml:"logging" toml:"logging"`

	Prefs struct {
		Path string `yaml:"path" toml:"path"`
	} `yaml:"prefs" toml:"prefs"`

	Rules []Rule `yaml:"rules" toml:"rules" validate:"dive"`

	// compiled
	diskMax        uint64
	gatewayTimeout time.Duration
	validateDelay  time.Duration
	statsEvery     time.Duration
}

// Rule changes how the lab server treats paths matching Match.
type Rule struct {
	Match             string   `yaml:"match" toml:"match" validate:"required"`
	Priority          int      `yaml:"priority" toml:"priority"`
	Bypass            bool     `yaml:"bypass" toml:"bypass"`
	BypassWhenCookies []string `yaml:"bypassWhenCookies" toml:"bypassWhenCookies"`
	Expiration        string   `yaml:"expiration" toml:"expiration"`

	// compiled
	matchers []pathPrefixMatcher
	expDur   time.Duration
}

type pathPrefixMatcher struct{ Prefix string }

func (m pathPrefixMatcher) Match(path string) bool { return strings.HasPrefix(path, m.Prefix) }

// Default returns a config with every default applied, as if loaded from an
// empty file.
func Default() Config {
	var cfg Config
	if err := cfg.compile(); err != nil {
		panic(err) // defaults always compile
	}
	return cfg
}

// Load reads path, choosing the TOML decoder for .toml files and YAML
// otherwise, applies defaults and validates the result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.compile(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) compile() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	c.Server.Origin = strings.TrimRight(c.Server.Origin, "/")
	if c.Storage.Path == "" {
		c.Storage.Path = "./data/leveldb"
	}
	if c.Storage.Disk.Max == "" {
		c.Storage.Disk.Max = "256MB"
	}
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Gateway.BaseURL = strings.TrimRight(c.Gateway.BaseURL, "/")
	if c.Gateway.Timeout == "" {
		c.Gateway.Timeout = "30s"
	}
	if c.Editor.HistorySize == 0 {
		c.Editor.HistorySize = 50
	}
	if c.Editor.ValidateDelay == "" {
		c.Editor.ValidateDelay = "500ms"
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	size, err := humanize.ParseBytes(c.Storage.Disk.Max)
	if err != nil {
		return fmt.Errorf("storage.disk.max: %w", err)
	}
	c.diskMax = size

	if c.gatewayTimeout, err = parseDuration("gateway.timeout", c.Gateway.Timeout); err != nil {
		return err
	}
	if c.validateDelay, err = parseDuration("editor.validateDelay", c.Editor.ValidateDelay); err != nil {
		return err
	}
	if c.Logging.LogStatsEvery != "" {
		if c.statsEvery, err = parseDuration("logging.logStatsEvery", c.Logging.LogStatsEvery); err != nil {
			return err
		}
	}

	for i := range c.Rules {
		r := &c.Rules[i]
		ms, err := parseMatch(r.Match)
		if err != nil {
			return fmt.Errorf("rules[%d].match: %w", i, err)
		}
		r.matchers = ms
		if r.Expiration != "" {
			if r.expDur, err = parseDuration(fmt.Sprintf("rules[%d].expiration", i), r.Expiration); err != nil {
				return err
			}
		}
	}
	sort.SliceStable(c.Rules, func(i, j int) bool {
		return c.Rules[i].Priority < c.Rules[j].Priority
	})
	return nil
}

func parseDuration(field, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative duration", field)
	}
	return d, nil
}

func (c Config) DiskMaxBytes() uint64 { return c.diskMax }
func (c Config) GatewayTimeout() time.Duration { return c.gatewayTimeout }
func (c Config) ValidateDelay() time.Duration { return c.validateDelay }
func (c Config) StatsEvery() time.Duration { return c.statsEvery }
func (c Config) ListenAddr() string { return fmt.Sprintf(":%d", c.Server.Port) }

// PickRule returns the first rule by priority matching path.
func (c Config) PickRule(path string) *Rule {
	for i := range c.Rules {
		if c.Rules[i].Matches(path) {
			return &c.Rules[i]
		}
	}
	return nil
}

func parseMatch(expr string) ([]pathPrefixMatcher, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty match")
	}

	parts := strings.Split(expr, "|")
	out := make([]pathPrefixMatcher, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "PathPrefix(") || !strings.HasSuffix(p, ")") {
			return nil, fmt.Errorf("only PathPrefix(...) supported, got %q", p)
		}
		inside := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(p, "PathPrefix("), ")"))
		if inside == "" || !strings.HasPrefix(inside, "/") {
			return nil, fmt.Errorf("invalid prefix %q", inside)
		}
		out = append(out, pathPrefixMatcher{Prefix: inside})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid matchers")
	}
	return out, nil
}

func (r *Rule) Matches(path string) bool {
	for _, m := range r.matchers {
		if m.Match(path) {
			return true
		}
	}
	return false
}

// ExpirationDur is how long a stored origin response stays fresh; zero
// means forever.
func (r *Rule) ExpirationDur() time.Duration { return r.expDur }
