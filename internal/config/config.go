// Package config loads the server configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendVertex    = "vertex"
	BackendVertexSDK = "vertex-sdk"
	BackendGemini    = "gemini"
	BackendProxy     = "proxy"
)

const defaultConfigYAML = `# vesteja server configuration
server:
  port: 8080
  allowed_origins:
    - http://localhost:5173

catalog:
  path: data/clothes.json
  asset_dir: public

gate:
  lenient_lighting: false
  max_dimension: 512
  min_brightness: 60
  max_brightness: 195
  nose_score: 0.5
  hip_score: 0.3
  ankle_score: 0.4
  # pose verdicts are reused only for byte-identical uploads; 0 disables
  cache_threshold: 5

pose:
  endpoint: http://localhost:8000

tryon:
  backend: vertex
  # endpoint the wizard posts to; empty means this server's own /tryon
  endpoint: ""
  timeout: 2m

google:
  location: us-central1

session:
  ttl: 30m
`

type ServerConfig struct {
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	// ShutdownTimeout bounds graceful shutdown, including in-flight try-ons.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type CatalogConfig struct {
	Path     string `yaml:"path"`
	AssetDir string `yaml:"asset_dir"`
	// BaseURL resolves relative garment image URLs when AssetDir is empty.
	BaseURL string `yaml:"base_url"`
}

type GateConfig struct {
	LenientLighting bool    `yaml:"lenient_lighting"`
	MaxDimension    int     `yaml:"max_dimension"`
	MinBrightness   float64 `yaml:"min_brightness"`
	MaxBrightness   float64 `yaml:"max_brightness"`
	NoseScore       float64 `yaml:"nose_score"`
	HipScore        float64 `yaml:"hip_score"`
	AnkleScore      float64 `yaml:"ankle_score"`
	// CacheThreshold is the dHash distance of the pose verdict cache. It
	// is a pointer so an explicit 0, which disables the cache, survives
	// defaults.
	CacheThreshold *int `yaml:"cache_threshold"`
	CacheSize      int  `yaml:"cache_size"`
}

type PoseConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type TryOnConfig struct {
	Backend  string        `yaml:"backend"`
	Endpoint string        `yaml:"endpoint"`
	Upstream string        `yaml:"upstream"`
	Timeout  time.Duration `yaml:"timeout"`
	// VTOModel is the Vertex AI Virtual Try-On model id.
	VTOModel    string `yaml:"vto_model"`
	GeminiModel string `yaml:"gemini_model"`
}

type GoogleConfig struct {
	ProjectID string `yaml:"project_id"`
	Location  string `yaml:"location"`
	APIKey    string `yaml:"api_key"`
}

type ResultsConfig struct {
	S3Bucket   string        `yaml:"s3_bucket"`
	S3Prefix   string        `yaml:"s3_prefix"`
	S3Region   string        `yaml:"s3_region"`
	LinkExpiry time.Duration `yaml:"link_expiry"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
	Gate    GateConfig    `yaml:"gate"`
	Pose    PoseConfig    `yaml:"pose"`
	TryOn   TryOnConfig   `yaml:"tryon"`
	Google  GoogleConfig  `yaml:"google"`
	Results ResultsConfig `yaml:"results"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

// Load reads path (when not empty), applies environment overrides and
// fills defaults. A missing file is an error only when path was given.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: %s does not exist", path)
			}
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// WriteDefault writes an annotated starter file to path unless one exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config: %s already exists", path)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	var errs []error
	parse := func(key string, fn func(string) error) {
		if v, ok := lookup(key); ok && v != "" {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	parse("PORT", func(v string) (err error) {
		c.Server.Port, err = strconv.Atoi(v)
		return err
	})
	str(&c.Google.ProjectID, "PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	str(&c.Google.Location, "LOCATION")
	str(&c.Google.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	str(&c.TryOn.VTOModel, "VTO_MODEL")
	parse("USE_SDK", func(v string) error {
		useSDK, err := strconv.ParseBool(v)
		if err == nil && useSDK && (c.TryOn.Backend == "" || c.TryOn.Backend == BackendVertex) {
			c.TryOn.Backend = BackendVertexSDK
		}
		return err
	})

	str(&c.TryOn.Backend, "VESTEJA_TRYON_BACKEND")
	str(&c.TryOn.Endpoint, "VESTEJA_TRYON_ENDPOINT")
	str(&c.TryOn.Upstream, "VESTEJA_TRYON_UPSTREAM")
	str(&c.Pose.Endpoint, "VESTEJA_POSE_ENDPOINT")
	str(&c.Catalog.Path, "VESTEJA_CATALOG")
	str(&c.Catalog.AssetDir, "VESTEJA_ASSET_DIR")
	str(&c.Results.S3Bucket, "VESTEJA_S3_BUCKET")
	str(&c.Results.S3Region, "VESTEJA_S3_REGION", "AWS_REGION")
	str(&c.Log.Level, "VESTEJA_LOG_LEVEL")

	parse("VESTEJA_ALLOWED_ORIGINS", func(v string) error {
		c.Server.AllowedOrigins = splitList(v)
		return nil
	})
	parse("VESTEJA_LENIENT_LIGHTING", func(v string) (err error) {
		c.Gate.LenientLighting, err = strconv.ParseBool(v)
		return err
	})
	parse("VESTEJA_VERDICT_CACHE_THRESHOLD", func(v string) error {
		n, err := strconv.Atoi(v)
		if err == nil {
			c.Gate.CacheThreshold = &n
		}
		return err
	})
	parse("VESTEJA_SESSION_TTL", func(v string) (err error) {
		c.Session.TTL, err = time.ParseDuration(v)
		return err
	})
	parse("VESTEJA_TRYON_TIMEOUT", func(v string) (err error) {
		c.TryOn.Timeout, err = time.ParseDuration(v)
		return err
	})

	return errors.Join(errs...)
}

func (c *Config) defaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = "data/clothes.json"
	}

	if c.Gate.MaxDimension == 0 {
		c.Gate.MaxDimension = 512
	}
	if c.Gate.MinBrightness == 0 && c.Gate.MaxBrightness == 0 {
		c.Gate.MinBrightness, c.Gate.MaxBrightness = 60, 195
	}
	if c.Gate.NoseScore == 0 {
		c.Gate.NoseScore = 0.5
	}
	if c.Gate.HipScore == 0 {
		c.Gate.HipScore = 0.3
	}
	if c.Gate.AnkleScore == 0 {
		c.Gate.AnkleScore = 0.4
	}
	if c.Gate.CacheThreshold == nil {
		threshold := 5
		c.Gate.CacheThreshold = &threshold
	}
	if c.Gate.CacheSize == 0 {
		c.Gate.CacheSize = 512
	}

	if c.Pose.Endpoint == "" {
		c.Pose.Endpoint = "http://localhost:8000"
	}
	if c.Pose.Timeout <= 0 {
		c.Pose.Timeout = 20 * time.Second
	}

	if c.TryOn.Backend == "" {
		c.TryOn.Backend = BackendVertex
	}
	if c.TryOn.Timeout <= 0 {
		c.TryOn.Timeout = 2 * time.Minute
	}
	if c.TryOn.VTOModel == "" {
		c.TryOn.VTOModel = "virtual-try-on-preview-08-04"
	}
	if c.TryOn.GeminiModel == "" {
		c.TryOn.GeminiModel = "gemini-2.5-flash-image"
	}
	if c.Google.Location == "" {
		c.Google.Location = "us-central1"
	}

	if c.Results.S3Prefix == "" {
		c.Results.S3Prefix = "results"
	}
	if c.Results.LinkExpiry <= 0 {
		c.Results.LinkExpiry = 24 * time.Hour
	}

	if c.Session.TTL <= 0 {
		c.Session.TTL = 30 * time.Minute
	}
	if c.Session.SweepInterval <= 0 {
		c.Session.SweepInterval = time.Minute
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch c.TryOn.Backend {
	case BackendVertex, BackendVertexSDK:
		if c.Google.ProjectID == "" {
			errs = append(errs, fmt.Errorf("google.project_id (PROJECT_ID) is required for the %s backend", c.TryOn.Backend))
		}
	case BackendGemini:
		if c.Google.ProjectID == "" && c.Google.APIKey == "" {
			errs = append(errs, fmt.Errorf("the gemini backend needs google.api_key or google.project_id"))
		}
	case BackendProxy:
		if c.TryOn.Upstream == "" {
			errs = append(errs, fmt.Errorf("tryon.upstream is required for the proxy backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown tryon.backend %q", c.TryOn.Backend))
	}

	g := c.Gate
	if g.MinBrightness < 0 || g.MaxBrightness > 255 || g.MinBrightness >= g.MaxBrightness {
		errs = append(errs, fmt.Errorf("gate brightness window [%v,%v] is invalid", g.MinBrightness, g.MaxBrightness))
	}
	for name, v := range map[string]float64{"nose_score": g.NoseScore, "hip_score": g.HipScore, "ankle_score": g.AnkleScore} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("gate.%s %v must lie in [0,1]", name, v))
		}
	}
	if g.CacheThreshold != nil && (*g.CacheThreshold < 0 || *g.CacheThreshold > 64) {
		errs = append(errs, fmt.Errorf("gate.cache_threshold %d must lie in [0,64]", *g.CacheThreshold))
	}
	if g.MaxDimension < 0 {
		errs = append(errs, fmt.Errorf("gate.max_dimension must not be negative"))
	}

	return errors.Join(errs...)
}

// TryOnEndpoint is where the wizard posts try-on requests.
func (c *Config) TryOnEndpoint() string {
	if c.TryOn.Endpoint != "" {
		return c.TryOn.Endpoint
	}
	return fmt.Sprintf("http://127.0.0.1:%d", c.Server.Port)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
