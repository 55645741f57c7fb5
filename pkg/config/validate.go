package config

import (
	"fmt"
	"time"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// UserAgent
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}

	// LogLevel
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	// Harvest timings
	if c.Harvest.PageLoadTimeout <= 0 {
		c.Harvest.PageLoadTimeout = 30 * time.Second
	}
	if c.Harvest.BodyWaitTimeout <= 0 {
		c.Harvest.BodyWaitTimeout = 15 * time.Second
	}
	if c.Harvest.ScrollSettle <= 0 {
		c.Harvest.ScrollSettle = 1500 * time.Millisecond
	}
	if c.Harvest.ClickSettle <= 0 {
		c.Harvest.ClickSettle = 2 * time.Second
	}
	if c.Harvest.FinalSettle <= 0 {
		c.Harvest.FinalSettle = 2 * time.Second
	}
	if c.Harvest.StableThreshold <= 0 {
		warnings = append(warnings, "harvest.stable_threshold should be > 0, defaulting to 5")
		c.Harvest.StableThreshold = 5
	}
	if c.Harvest.MaxRounds <= 0 {
		warnings = append(warnings, "harvest.max_rounds should be > 0, defaulting to 80")
		c.Harvest.MaxRounds = 80
	}
	if c.Harvest.CommentScrolls <= 0 {
		c.Harvest.CommentScrolls = 5
	}
	if c.Harvest.CommentSettle <= 0 {
		c.Harvest.CommentSettle = 2 * time.Second
	}
	if c.Harvest.DelayPerSubEvent < 0 {
		warnings = append(warnings, "harvest.delay_per_sub_event cannot be negative, setting to 0")
		c.Harvest.DelayPerSubEvent = 0
	} else if c.Harvest.DelayPerSubEvent == 0 {
		c.Harvest.DelayPerSubEvent = 2 * time.Second
	}
	if c.Harvest.OutputDir == "" {
		warnings = append(warnings, "harvest.output_dir is empty, defaulting to './scraped_data'")
		c.Harvest.OutputDir = "./scraped_data"
	}

	// Probe settings
	if c.Probe.URLTemplate == "" {
		c.Probe.URLTemplate = "https://events.baidu.com/search/vein?platform=pc&record_id=%d"
	}
	if c.Probe.Concurrency <= 0 {
		warnings = append(warnings, "probe.concurrency should be > 0, defaulting to 15")
		c.Probe.Concurrency = 15
	}
	if c.Probe.BatchSize <= 0 {
		warnings = append(warnings, "probe.batch_size should be > 0, defaulting to 1000")
		c.Probe.BatchSize = 1000
	}
	if c.Probe.RequestTimeout <= 0 {
		c.Probe.RequestTimeout = 10 * time.Second
	}
	if c.Probe.MinDate == "" {
		c.Probe.MinDate = "2025-01-01"
	}
	if _, perr := time.Parse("2006-01-02", c.Probe.MinDate); perr != nil {
		return warnings, fmt.Errorf("probe.min_date %q is not a valid YYYY-MM-DD date: %v", c.Probe.MinDate, perr)
	}
	if c.Probe.LedgerPath == "" {
		c.Probe.LedgerPath = "./valid_record_ids.csv"
	}

	// Translate settings
	if c.Translate.CacheDir == "" {
		c.Translate.CacheDir = "./translation_cache"
	}

	// HTTP client settings
	if c.HTTPClientSettings.Timeout <= 0 {
		c.HTTPClientSettings.Timeout = c.Probe.RequestTimeout
	}
	if c.HTTPClientSettings.MaxIdleConns <= 0 {
		c.HTTPClientSettings.MaxIdleConns = 100
	}
	if c.HTTPClientSettings.MaxIdleConnsPerHost <= 0 {
		c.HTTPClientSettings.MaxIdleConnsPerHost = c.Probe.Concurrency
	}
	if c.HTTPClientSettings.IdleConnTimeout <= 0 {
		c.HTTPClientSettings.IdleConnTimeout = 90 * time.Second
	}
	if c.HTTPClientSettings.TLSHandshakeTimeout <= 0 {
		c.HTTPClientSettings.TLSHandshakeTimeout = 10 * time.Second
	}
	if c.HTTPClientSettings.DialerTimeout <= 0 {
		c.HTTPClientSettings.DialerTimeout = 15 * time.Second
	}
	if c.HTTPClientSettings.DialerKeepAlive <= 0 {
		c.HTTPClientSettings.DialerKeepAlive = 30 * time.Second
	}

	return warnings, nil
}
