// Package config resolves coachdesk settings from defaults, an optional yaml file,
// a .env file, environment variables and command-line flags, in increasing priority.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Env selects the backend default and the logger flavour.
type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

const (
	envAPIURL    = "COACHDESK_API_URL"
	envMode      = "COACHDESK_ENV"
	envTokenPath = "COACHDESK_TOKEN_PATH"
	envLogLevel  = "COACHDESK_LOG_LEVEL"

	defaultDevAPIURL      = "http://localhost:5000/api"
	defaultProdAPIURL     = "https://api.coachdesk.app/api"
	defaultPageSize       = 10
	defaultSearchDebounce = 300 * time.Millisecond
	defaultRequestTimeout = 30 * time.Second
	defaultDashboardAddr  = "127.0.0.1:8090"
	defaultCertCacheDir   = "./certs"
	defaultDotEnv         = ".env"
)

type Config struct {
	APIURL         string
	Env            Env
	TokenPath      string
	RequestTimeout time.Duration
	PageSize       int
	SearchDebounce time.Duration
	DashboardAddr  string
	TLSDomains     []string
	CertCacheDir   string
	LogLevel       string
	// WaitReady probes the backend before the first request.
	WaitReady bool
}

// IsProduction reports whether the production defaults apply.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// ConfigTmp is the yaml file layout.
type ConfigTmp struct {
	APIURL         string        `yaml:"api_url"`
	Env            string        `yaml:"env"`
	TokenPath      string        `yaml:"token_path"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PageSizeStr    string        `yaml:"page_size,omitempty"`
	SearchDebounce time.Duration `yaml:"search_debounce"`
	DashboardAddr  string        `yaml:"dashboard_addr"`
	TLSDomains     []string      `yaml:"tls_domains"`
	CertCacheDir   string        `yaml:"cert_cache_dir"`
	LogLevel       string        `yaml:"log_level"`
	WaitReady      bool          `yaml:"wait_ready"`
}

// Get parses the global flags in args and returns the resolved config together
// with the remaining arguments (the subcommand and its flags).
func Get(args []string) (Config, []string, error) {
	fs := flag.NewFlagSet("coachdesk", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to yaml config")
	dotEnv := fs.String("dotenv", defaultDotEnv, "path to .env file, ignored when missing")
	api := fs.String("api", "", "backend API base URL, overrides "+envAPIURL)
	mode := fs.String("env", "", "development or production, overrides "+envMode)
	tokenPath := fs.String("token", "", "token file path")
	pageSize := fs.Int("pagesize", 0, "rows per page")
	logLevel := fs.String("loglevel", "", "debug, info, warn or error")
	waitReady := fs.Bool("wait", false, "wait for the backend before running the command")
	if err := fs.Parse(args); err != nil {
		return Config{}, nil, err
	}

	if err := loadDotEnv(*dotEnv); err != nil {
		return Config{}, nil, err
	}

	var tmp ConfigTmp
	if *configPath != "" {
		var err error
		tmp, err = getYaml(*configPath)
		if err != nil {
			return Config{}, nil, err
		}
	}

	cfg, err := resolve(tmp)
	if err != nil {
		return Config{}, nil, err
	}

	if *mode != "" {
		env, err := parseEnv(*mode)
		if err != nil {
			return Config{}, nil, err
		}
		if tmp.APIURL == "" && os.Getenv(envAPIURL) == "" {
			cfg.APIURL = defaultAPIURL(env)
		}
		if tmp.LogLevel == "" && os.Getenv(envLogLevel) == "" {
			cfg.LogLevel = defaultLogLevel(env)
		}
		cfg.Env = env
	}
	if *api != "" {
		cfg.APIURL = strings.TrimRight(*api, "/")
	}
	if *tokenPath != "" {
		cfg.TokenPath = *tokenPath
	}
	if *pageSize < 0 {
		return Config{}, nil, fmt.Errorf("invalid --pagesize provided, --pagesize=%d", *pageSize)
	}
	if *pageSize > 0 {
		cfg.PageSize = *pageSize
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *waitReady {
		cfg.WaitReady = true
	}

	return cfg, fs.Args(), nil
}

func defaultLogLevel(env Env) string {
	if env == EnvDevelopment {
		return "debug"
	}
	return "info"
}

// resolve applies environment variables over the yaml values and fills defaults.
func resolve(tmp ConfigTmp) (Config, error) {
	mode := tmp.Env
	if v := os.Getenv(envMode); v != "" {
		mode = v
	}
	env, err := parseEnv(mode)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIURL:         defaultAPIURL(env),
		Env:            env,
		TokenPath:      defaultTokenPath(),
		RequestTimeout: defaultRequestTimeout,
		PageSize:       defaultPageSize,
		SearchDebounce: defaultSearchDebounce,
		DashboardAddr:  defaultDashboardAddr,
		TLSDomains:     tmp.TLSDomains,
		CertCacheDir:   defaultCertCacheDir,
		LogLevel:       defaultLogLevel(env),
		WaitReady:      tmp.WaitReady,
	}

	if tmp.APIURL != "" {
		cfg.APIURL = tmp.APIURL
	}
	if v := os.Getenv(envAPIURL); v != "" {
		cfg.APIURL = v
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if tmp.TokenPath != "" {
		cfg.TokenPath = tmp.TokenPath
	}
	if v := os.Getenv(envTokenPath); v != "" {
		cfg.TokenPath = v
	}
	if tmp.RequestTimeout > 0 {
		cfg.RequestTimeout = tmp.RequestTimeout
	}
	if tmp.PageSizeStr != "" {
		size, err := strconv.Atoi(tmp.PageSizeStr)
		if err != nil || size <= 0 {
			return Config{}, fmt.Errorf("incorrect 'page_size' param in yaml config (must be a positive integer): %q", tmp.PageSizeStr)
		}
		cfg.PageSize = size
	}
	if tmp.SearchDebounce > 0 {
		cfg.SearchDebounce = tmp.SearchDebounce
	}
	if tmp.DashboardAddr != "" {
		cfg.DashboardAddr = tmp.DashboardAddr
	}
	if tmp.CertCacheDir != "" {
		cfg.CertCacheDir = tmp.CertCacheDir
	}
	if tmp.LogLevel != "" {
		cfg.LogLevel = tmp.LogLevel
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

func getYaml(path string) (ConfigTmp, error) {
	var tmp ConfigTmp
	f, err := os.ReadFile(path)
	if err != nil {
		return ConfigTmp{}, err
	}
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return ConfigTmp{}, fmt.Errorf("incorrect yaml config %s: %w", path, err)
	}
	return tmp, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func parseEnv(s string) (Env, error) {
	switch Env(strings.ToLower(strings.TrimSpace(s))) {
	case "", EnvDevelopment, "dev":
		return EnvDevelopment, nil
	case EnvProduction, "prod":
		return EnvProduction, nil
	}
	return "", fmt.Errorf("invalid env %q, want development or production", s)
}

func defaultAPIURL(env Env) string {
	if env == EnvProduction {
		return defaultProdAPIURL
	}
	return defaultDevAPIURL
}

func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".coachdesk", "token.json")
	}
	return filepath.Join(dir, "coachdesk", "token.json")
}
