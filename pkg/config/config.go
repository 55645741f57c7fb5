package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/YaPengJi1/pachong/pkg/utils"
)

// HarvestConfig holds settings for the two-level timeline harvest.
type HarvestConfig struct {
	PageLoadTimeout  time.Duration `yaml:"page_load_timeout,omitempty"`
	BodyWaitTimeout  time.Duration `yaml:"body_wait_timeout,omitempty"`
	ScrollSettle     time.Duration `yaml:"scroll_settle,omitempty"`      // After each scroll during stabilization
	ClickSettle      time.Duration `yaml:"click_settle,omitempty"`       // After each load-more click
	FinalSettle      time.Duration `yaml:"final_settle,omitempty"`       // Before the final recount
	StableThreshold  int           `yaml:"stable_threshold,omitempty"`   // Consecutive unchanged counts to declare stable
	MaxRounds        int           `yaml:"max_rounds,omitempty"`         // Hard bound on stabilization rounds
	CommentScrolls   int           `yaml:"comment_scrolls,omitempty"`    // Fixed scroll rounds on comment pages
	CommentSettle    time.Duration `yaml:"comment_settle,omitempty"`     // Pause between comment-page scrolls
	DelayPerSubEvent time.Duration `yaml:"delay_per_sub_event,omitempty"`
	OutputDir        string        `yaml:"output_dir,omitempty"`
	Headless         *bool         `yaml:"headless,omitempty"`
}

// ProbeConfig holds settings for the identifier-space prober.
type ProbeConfig struct {
	URLTemplate    string        `yaml:"url_template,omitempty"`
	Concurrency    int           `yaml:"concurrency,omitempty"`
	BatchSize      int           `yaml:"batch_size,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	MinDate        string        `yaml:"min_date,omitempty"` // YYYY-MM-DD cutoff for valid records
	LedgerPath     string        `yaml:"ledger_path,omitempty"`
}

// TranslateConfig holds settings for the title translator.
type TranslateConfig struct {
	CacheDir     string `yaml:"cache_dir,omitempty"`
	DisableCache bool   `yaml:"disable_cache,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client used by the
// prober.
type HTTPClientConfig struct {
	Timeout             time.Duration `yaml:"timeout,omitempty"`
	MaxIdleConns        int           `yaml:"max_idle_conns,omitempty"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host,omitempty"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	DialerTimeout       time.Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive     time.Duration `yaml:"dialer_keep_alive,omitempty"`
}

// AppConfig holds the global application configuration
type AppConfig struct {
	UserAgent          string           `yaml:"user_agent,omitempty"`
	LogLevel           string           `yaml:"log_level,omitempty"`
	Harvest            HarvestConfig    `yaml:"harvest,omitempty"`
	Probe              ProbeConfig      `yaml:"probe,omitempty"`
	Translate          TranslateConfig  `yaml:"translate,omitempty"`
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// Headless determines the effective browser headless setting.
func (h HarvestConfig) HeadlessEnabled() bool {
	if h.Headless != nil {
		return *h.Headless
	}
	return true
}

// LoadConfig reads and parses the YAML config file at the given path.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w: %v", path, utils.ErrFilesystem, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w: %v", path, utils.ErrConfigValidation, err)
	}
	return &cfg, nil
}
