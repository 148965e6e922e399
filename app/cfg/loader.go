package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// Version is set at build time via -ldflags
var Version = "dev"

const DefaultDescription = "Messageboard by kolaczyn"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server
	Port      string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	StaticDir string `long:"static-dir" env:"STATIC_DIR" default:"./public" description:"Directory with static assets (stylesheet)"`

	// Upstream API
	UpstreamURL     string `long:"upstream-url" env:"UPSTREAM_URL" default:"https://api.kolaczyn.com" description:"Base URL of the message board API"`
	UpstreamTimeout int    `long:"upstream-timeout" env:"UPSTREAM_TIMEOUT" default:"5" description:"Upstream request timeout in seconds"`
	UserAgent       string `long:"user-agent" env:"USER_AGENT" default:"Board Feeds/1.0" description:"User agent string for upstream requests"`

	// Cache
	CacheTTL           int `long:"cache-ttl" env:"CACHE_TTL" default:"60" description:"Lifetime of a cached feed in seconds"`
	NegativeCacheTTL   int `long:"negative-cache-ttl" env:"NEGATIVE_CACHE_TTL" default:"60" description:"Lifetime of a cached upstream failure in seconds"`
	CacheSweepInterval int `long:"cache-sweep-interval" env:"CACHE_SWEEP_INTERVAL" default:"120" description:"Interval between expired cache entry sweeps in seconds"`

	// Public site
	SiteURL  string `long:"site-url" env:"SITE_URL" default:"https://4chan.kolaczyn.com" description:"Public URL of the message board, used for feed links"`
	SiteFile string `long:"site-file" env:"SITE_FILE" description:"Optional YAML file overriding site settings"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:               raw.Port,
		StaticDir:          raw.StaticDir,
		UpstreamURL:        strings.TrimRight(raw.UpstreamURL, "/"),
		UpstreamTimeout:    raw.UpstreamTimeout,
		UserAgent:          raw.UserAgent,
		CacheTTL:           raw.CacheTTL,
		NegativeCacheTTL:   raw.NegativeCacheTTL,
		CacheSweepInterval: raw.CacheSweepInterval,
		SiteURL:            strings.TrimRight(raw.SiteURL, "/"),
		SiteFile:           raw.SiteFile,
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	site, err := LoadSite(cfg.SiteFile, Site{
		BaseURL:     cfg.SiteURL,
		Description: DefaultDescription,
	})
	if err != nil {
		return nil, err
	}
	cfg.Site = site

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// LoadSite reads the site profile at path on top of defaults. An empty path
// returns defaults unchanged.
func LoadSite(path string, defaults Site) (Site, error) {
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Site{}, fmt.Errorf("failed to read site file: %w", err)
	}

	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return Site{}, fmt.Errorf("failed to parse site file %s: %w", path, err)
	}

	return Site{
		BaseURL:     strings.TrimRight(cmp.Or(site.BaseURL, defaults.BaseURL), "/"),
		Description: cmp.Or(site.Description, defaults.Description),
		Language:    cmp.Or(site.Language, defaults.Language),
	}, nil
}

func validate(cfg *Cfg) error {
	if cfg.UpstreamURL == "" {
		return errors.New("upstream URL is required")
	}

	positiveFields := map[string]int{
		"cache TTL":            cfg.CacheTTL,
		"cache sweep interval": cfg.CacheSweepInterval,
		"upstream timeout":     cfg.UpstreamTimeout,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if cfg.NegativeCacheTTL < 0 {
		return errors.New("negative cache TTL must be non-negative")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
