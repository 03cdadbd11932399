package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Diwakar-Gupta/pepper/internal/agent/frontdoor"
	"github.com/Diwakar-Gupta/pepper/internal/common/cache"
	"github.com/Diwakar-Gupta/pepper/internal/common/mq"
	"github.com/Diwakar-Gupta/pepper/internal/common/storage"
	"github.com/Diwakar-Gupta/pepper/internal/judge/sandbox/profile"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultSignalingURL     = "https://pepper-isjb.onrender.com"
	defaultTestCasesURL     = "https://diwakar-gupta.github.io/pepper"
	defaultCodeFile         = ".judge_code"
	defaultMaxAttempts      = 5
	defaultBackoffBase      = 2
	defaultWakeupTimeout    = 30 * time.Second
	defaultWakeupSettle     = 3 * time.Second
	defaultHandshakeTimeout = 20 * time.Second
	defaultRunTimeout       = 5 * time.Second
	defaultProbeTimeout     = 5 * time.Second
	defaultOutputMaxBytes   = 16 << 20
	defaultFetchTimeout     = 15 * time.Second
	defaultCacheDir         = ".test_cases_cache"
	defaultStorePath        = "submissions.db"
	defaultEventsTopic      = "judge.submission.recorded"
	defaultFrontDoorAddr    = "127.0.0.1:8790"
	defaultReadTimeout      = 5 * time.Second
	defaultWriteTimeout     = 60 * time.Second
	defaultIdleTimeout      = 60 * time.Second
	defaultREPLHistory      = ".judge_repl_history"
)

var defaultICEServers = []string{"stun:stun.l.google.com:19302"}

// PairingConfig holds pairing code persistence settings.
type PairingConfig struct {
	CodeFile string `yaml:"codeFile"`
}

// SignalingConfig holds relay settings.
type SignalingConfig struct {
	URL              string        `yaml:"url"`
	MaxAttempts      int           `yaml:"maxAttempts"`
	BackoffBase      float64       `yaml:"backoffBase"`
	WakeupTimeout    time.Duration `yaml:"wakeupTimeout"`
	WakeupSettle     time.Duration `yaml:"wakeupSettle"`
	HandshakeTimeout time.Duration `yaml:"handshakeTimeout"`
}

// WebRTCConfig holds peer negotiation settings.
type WebRTCConfig struct {
	ICEServers           []string `yaml:"iceServers"`
	TaskQueue            int      `yaml:"taskQueue"`
	MaxPendingCandidates int      `yaml:"maxPendingCandidates"`
	FrameBuffer          int      `yaml:"frameBuffer"`
}

// SandboxConfig holds execution settings.
type SandboxConfig struct {
	WorkRoot       string                 `yaml:"workRoot"`
	RunTimeout     time.Duration          `yaml:"runTimeout"`
	CompileTimeout time.Duration          `yaml:"compileTimeout"`
	ProbeTimeout   time.Duration          `yaml:"probeTimeout"`
	OutputMaxBytes int64                  `yaml:"outputMaxBytes"`
	Languages      []profile.LanguageSpec `yaml:"languages"`
}

// CacheConfig selects the test-case cache.
type CacheConfig struct {
	Driver string            `yaml:"driver"`
	Dir    string            `yaml:"dir"`
	Redis  cache.RedisConfig `yaml:"redis"`
}

// TestCaseConfig holds test-case source settings.
type TestCaseConfig struct {
	Source       string              `yaml:"source"`
	BaseURL      string              `yaml:"baseURL"`
	MinIO        storage.MinIOConfig `yaml:"minio"`
	FetchTimeout time.Duration       `yaml:"fetchTimeout"`
	Cache        CacheConfig         `yaml:"cache"`
}

// StoreConfig holds submission ledger settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	ClientID     string        `yaml:"clientID"`
	Topic        string        `yaml:"topic"`
	BatchSize    int           `yaml:"batchSize"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// EventsConfig controls submission event publishing.
type EventsConfig struct {
	Enabled bool        `yaml:"enabled"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

// REPLConfig holds console settings.
type REPLConfig struct {
	HistoryFile string `yaml:"historyFile"`
	PrettyJSON  *bool  `yaml:"prettyJSON"`
}

// AppConfig holds judge-agent config.
type AppConfig struct {
	Logger    logger.Config    `yaml:"logger"`
	Pairing   PairingConfig    `yaml:"pairing"`
	Signaling SignalingConfig  `yaml:"signaling"`
	WebRTC    WebRTCConfig     `yaml:"webrtc"`
	Sandbox   SandboxConfig    `yaml:"sandbox"`
	TestCases TestCaseConfig   `yaml:"testcases"`
	Store     StoreConfig      `yaml:"store"`
	Events    EventsConfig     `yaml:"events"`
	FrontDoor frontdoor.Config `yaml:"frontDoor"`
	REPL      REPLConfig       `yaml:"repl"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

// loadAppConfig reads path (a missing file means all defaults), then .env,
// then PEPPER_* environment overrides.
func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		if err := loadYAML(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env failed: %w", err)
	}
	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv("PEPPER_SIGNALING_URL")); v != "" {
		cfg.Signaling.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("PEPPER_TESTCASES_URL")); v != "" {
		cfg.TestCases.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PEPPER_CODE_FILE")); v != "" {
		cfg.Pairing.CodeFile = v
	}
	if v := strings.TrimSpace(os.Getenv("PEPPER_LOG_LEVEL")); v != "" {
		cfg.Logger.Level = v
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "console"
	}
	if cfg.Pairing.CodeFile == "" {
		cfg.Pairing.CodeFile = defaultCodeFile
	}

	s := &cfg.Signaling
	if s.URL == "" {
		s.URL = defaultSignalingURL
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = defaultMaxAttempts
	}
	if s.BackoffBase <= 0 {
		s.BackoffBase = defaultBackoffBase
	}
	if s.WakeupTimeout == 0 {
		s.WakeupTimeout = defaultWakeupTimeout
	}
	if s.WakeupSettle == 0 {
		s.WakeupSettle = defaultWakeupSettle
	}
	if s.HandshakeTimeout == 0 {
		s.HandshakeTimeout = defaultHandshakeTimeout
	}

	if len(cfg.WebRTC.ICEServers) == 0 {
		cfg.WebRTC.ICEServers = append([]string(nil), defaultICEServers...)
	}

	sb := &cfg.Sandbox
	if sb.RunTimeout == 0 {
		sb.RunTimeout = defaultRunTimeout
	}
	if sb.ProbeTimeout == 0 {
		sb.ProbeTimeout = defaultProbeTimeout
	}
	if sb.OutputMaxBytes <= 0 {
		sb.OutputMaxBytes = defaultOutputMaxBytes
	}
	if len(sb.Languages) == 0 {
		sb.Languages = profile.DefaultLanguages()
	}

	tc := &cfg.TestCases
	if tc.Source == "" {
		tc.Source = "http"
	}
	if tc.BaseURL == "" {
		tc.BaseURL = defaultTestCasesURL
	}
	if tc.FetchTimeout == 0 {
		tc.FetchTimeout = defaultFetchTimeout
	}
	if tc.Cache.Driver == "" {
		tc.Cache.Driver = "disk"
	}
	if tc.Cache.Dir == "" {
		tc.Cache.Dir = defaultCacheDir
	}
	applyRedisDefaults(&tc.Cache.Redis)

	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath
	}
	if cfg.Events.Kafka.Topic == "" {
		cfg.Events.Kafka.Topic = defaultEventsTopic
	}

	fd := &cfg.FrontDoor
	if fd.Addr == "" {
		fd.Addr = defaultFrontDoorAddr
	}
	if fd.ReadTimeout == 0 {
		fd.ReadTimeout = defaultReadTimeout
	}
	if fd.WriteTimeout == 0 {
		fd.WriteTimeout = defaultWriteTimeout
	}
	if fd.IdleTimeout == 0 {
		fd.IdleTimeout = defaultIdleTimeout
	}

	if cfg.REPL.HistoryFile == "" {
		cfg.REPL.HistoryFile = defaultREPLHistory
	}
	if cfg.REPL.PrettyJSON == nil {
		trueValue := true
		cfg.REPL.PrettyJSON = &trueValue
	}
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaults.KeyPrefix
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
}

func validate(cfg *AppConfig) error {
	switch cfg.TestCases.Source {
	case "http":
	case "minio":
		if cfg.TestCases.MinIO.Endpoint == "" || cfg.TestCases.MinIO.Bucket == "" {
			return fmt.Errorf("testcases.minio endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unknown testcases.source %q", cfg.TestCases.Source)
	}
	switch cfg.TestCases.Cache.Driver {
	case "disk":
	case "redis":
		if cfg.TestCases.Cache.Redis.Addr == "" {
			return fmt.Errorf("testcases.cache.redis.addr is required")
		}
	default:
		return fmt.Errorf("unknown testcases.cache.driver %q", cfg.TestCases.Cache.Driver)
	}
	if cfg.Events.Enabled && len(cfg.Events.Kafka.Brokers) == 0 {
		return fmt.Errorf("events.kafka.brokers is required when events are enabled")
	}
	return nil
}

func (k KafkaConfig) toMQConfig() mq.KafkaConfig {
	return mq.KafkaConfig{
		Brokers:      k.Brokers,
		ClientID:     k.ClientID,
		BatchSize:    k.BatchSize,
		BatchTimeout: k.BatchTimeout,
		DialTimeout:  k.DialTimeout,
		WriteTimeout: k.WriteTimeout,
	}
}
