package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"jobradar/internal/domain/entity"
)

// FeedConfig is one followed feed in the YAML config file.
type FeedConfig struct {
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Category string `yaml:"category,omitempty" json:"category,omitempty"`
}

// RecruitmentFilters hold the personal eligibility constraints injected into
// the relevance prompt.
type RecruitmentFilters struct {
	RequiredDegree         string `yaml:"required_degree" json:"required_degree"`
	CitizenshipRequirement string `yaml:"citizenship_requirement" json:"citizenship_requirement"`
}

// EmailConfig configures the digest recipient and sender.
type EmailConfig struct {
	Recipient string `yaml:"recipient" json:"recipient"`
	Sender    string `yaml:"sender" json:"sender"`
	Subject   string `yaml:"subject,omitempty" json:"subject,omitempty"`
}

// AnalysisConfig selects models and generation parameters for the analyzer.
// FilterModel is the small model used for the quick relevance check.
type AnalysisConfig struct {
	Model       string  `yaml:"model" json:"model"`
	FilterModel string  `yaml:"filter_model" json:"filter_model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	NumPredict  int     `yaml:"num_predict" json:"num_predict"`
}

// AppConfig is the YAML-backed application configuration.
// It is editable at runtime through PUT /api/config; the scheduler and the
// collector read it through Store, which serializes access.
type AppConfig struct {
	// RSSMode selects the feed provider: auto, miniflux, freshrss, or direct.
	// In auto mode the provider is resolved from which reader env vars are set.
	RSSMode string `yaml:"rss_mode" json:"rss_mode"`

	Keywords []string     `yaml:"keywords" json:"keywords"`
	RSSFeeds []FeedConfig `yaml:"rss_feeds" json:"rss_feeds"`

	RecruitmentFilters RecruitmentFilters `yaml:"recruitment_filters" json:"recruitment_filters"`

	// RelevanceThreshold is the minimum 0-10 score a posting must reach to
	// survive the quick relevance gate.
	RelevanceThreshold int `yaml:"relevance_threshold" json:"relevance_threshold"`

	// FetchIntervalHours is the collect schedule period.
	FetchIntervalHours int `yaml:"fetch_interval_hours" json:"fetch_interval_hours"`

	// DigestTime is the daily digest send time as HH:MM wall clock.
	DigestTime string `yaml:"digest_time" json:"digest_time"`

	Email    EmailConfig    `yaml:"email" json:"email"`
	Analysis AnalysisConfig `yaml:"analysis" json:"analysis"`

	// LastReaderFetch is the high-water-mark timestamp of the newest entry
	// seen from the reader API. Persisted so restarts do not re-pull history.
	LastReaderFetch string `yaml:"last_reader_fetch,omitempty" json:"last_reader_fetch,omitempty"`
}

// DefaultAppConfig returns the starting configuration written by setup.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		RSSMode: "auto",
		Keywords: []string{
			"machine learning", "data engineer", "backend", "distributed systems",
		},
		RecruitmentFilters: RecruitmentFilters{
			RequiredDegree:         "MSc",
			CitizenshipRequirement: "open to international applicants",
		},
		RelevanceThreshold: 6,
		FetchIntervalHours: 6,
		DigestTime:         "08:00",
		Email: EmailConfig{
			Subject: "Job digest",
		},
		Analysis: AnalysisConfig{
			Model:       "llama3.1:8b",
			FilterModel: "llama3.2:1b",
			Temperature: 0.2,
			NumPredict:  1024,
		},
	}
}

// Validate checks cross-field consistency of the config.
func (c *AppConfig) Validate() error {
	switch c.RSSMode {
	case "", "auto", "miniflux", "freshrss", "direct":
	default:
		return fmt.Errorf("invalid rss_mode '%s' (must be auto, miniflux, freshrss, or direct)", c.RSSMode)
	}
	if err := ValidateScoreThreshold(c.RelevanceThreshold); err != nil {
		return err
	}
	if c.FetchIntervalHours <= 0 {
		return fmt.Errorf("fetch_interval_hours must be positive, got %d", c.FetchIntervalHours)
	}
	if c.DigestTime != "" {
		if err := ValidateClockTime(c.DigestTime); err != nil {
			return err
		}
	}
	for i, feed := range c.RSSFeeds {
		if feed.Name == "" {
			return fmt.Errorf("rss_feeds[%d]: name is required", i)
		}
		if err := entity.ValidateURL(feed.URL); err != nil {
			return fmt.Errorf("rss_feeds[%d]: %w", i, err)
		}
	}
	return nil
}

// ResolveProvider applies the auto-detection rule:
// explicit mode wins, then MINIFLUX_URL, then FRESHRSS_URL, then direct.
func (c *AppConfig) ResolveProvider() entity.Provider {
	switch c.RSSMode {
	case "miniflux":
		return entity.ProviderMiniflux
	case "freshrss":
		return entity.ProviderFreshRSS
	case "direct":
		return entity.ProviderDirect
	}
	if os.Getenv("MINIFLUX_URL") != "" {
		return entity.ProviderMiniflux
	}
	if os.Getenv("FRESHRSS_URL") != "" {
		return entity.ProviderFreshRSS
	}
	return entity.ProviderDirect
}

// Store serializes access to the YAML config file.
// Reads return a deep copy; updates validate, then write atomically.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  *AppConfig
}

// NewStore loads the config file at path, creating it with defaults when it
// does not exist yet.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.cfg = DefaultAppConfig()
		if writeErr := s.writeLocked(); writeErr != nil {
			return nil, fmt.Errorf("write initial config: %w", writeErr)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultAppConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config file: %w", err)
	}

	s.cfg = cfg
	return s, nil
}

// Get returns a copy of the current configuration.
func (s *Store) Get() AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := *s.cfg
	cp.Keywords = append([]string(nil), s.cfg.Keywords...)
	cp.RSSFeeds = append([]FeedConfig(nil), s.cfg.RSSFeeds...)
	return cp
}

// Update validates the new configuration and persists it.
func (s *Store) Update(cfg AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// LastReaderFetch is pipeline state, not user input
	cfg.LastReaderFetch = s.cfg.LastReaderFetch
	s.cfg = &cfg
	return s.writeLocked()
}

// SetLastReaderFetch persists the reader high-water mark.
func (s *Store) SetLastReaderFetch(ts string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ts == "" || ts == s.cfg.LastReaderFetch {
		return nil
	}
	s.cfg.LastReaderFetch = ts
	return s.writeLocked()
}

// Path returns the file path backing this store.
func (s *Store) Path() string {
	return s.path
}

// writeLocked writes the config atomically (temp file + rename).
// Caller must hold the write lock.
func (s *Store) writeLocked() error {
	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp config: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace config file: %w", err)
	}
	return nil
}

// LoadDotenv loads the .env file into the process environment if present.
// A missing file is not an error; existing environment variables win.
func LoadDotenv() error {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
