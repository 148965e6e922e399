package cfg

import "time"

type Cfg struct {
	// HTTP server
	Port      string
	StaticDir string

	// Upstream API
	UpstreamURL     string
	UpstreamTimeout int // seconds
	UserAgent       string

	// Cache
	CacheTTL           int // seconds
	NegativeCacheTTL   int // seconds
	CacheSweepInterval int // seconds

	// Public site
	SiteURL  string
	SiteFile string
	Site     Site

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

// Site describes the public site the feeds link to.
type Site struct {
	BaseURL     string `yaml:"base_url"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
}

func (c *Cfg) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

func (c *Cfg) NegativeCacheTTLDuration() time.Duration {
	return time.Duration(c.NegativeCacheTTL) * time.Second
}

func (c *Cfg) CacheSweepDuration() time.Duration {
	return time.Duration(c.CacheSweepInterval) * time.Second
}

func (c *Cfg) UpstreamTimeoutDuration() time.Duration {
	return time.Duration(c.UpstreamTimeout) * time.Second
}
