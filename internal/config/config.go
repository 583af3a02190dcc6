package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything the client reads at startup.
type Config struct {
	APIURL                string
	SocketURL             string
	AdminPanelURL         string
	PaymentKeyID          string
	LogFile               string
	PrefsPath             string
	PollInterval          time.Duration
	RequestsPerSecond     float64
	FreeShippingThreshold float64
	ShippingFee           float64
	RoleRedirectDelay     time.Duration
	ReconnectAttempts     int
	ReconnectDelay        time.Duration
	Currency              string
	StoreName             string
	PaymentBridgeAddr     string
}

const (
	defaultConfigPath            = "~/.config/shopaura/config.toml"
	defaultEnvFile               = ".env"
	defaultAPIURL                = "http://localhost:5000/api"
	defaultAdminPanelURL         = "http://localhost:5174"
	defaultLogFile               = "~/.local/state/shopaura/shopaura.log"
	defaultPrefsPath             = "~/.config/shopaura/prefs.toml"
	defaultPollSeconds           = 30
	defaultFreeShippingThreshold = 500
	defaultShippingFee           = 50
	defaultRoleRedirectDelayMS   = 2000
	defaultReconnectAttempts     = 5
	defaultReconnectDelayMS      = 1000
	defaultCurrency              = "INR"
	defaultStoreName             = "ShopAura"
	defaultPaymentBridgeAddr     = "127.0.0.1:0"
)

// Environment keys, shared with the web storefront's build configuration.
const (
	EnvAPIURL        = "VITE_API_URL"
	EnvSocketURL     = "VITE_SOCKET_URL"
	EnvAdminPanelURL = "VITE_ADMIN_PANEL_URL"
	EnvPaymentKeyID  = "VITE_RAZORPAY_KEY_ID"
)

type fileConfig struct {
	APIURL                string   `toml:"api_url"`
	SocketURL             string   `toml:"socket_url"`
	AdminPanelURL         string   `toml:"admin_panel_url"`
	PaymentKeyID          string   `toml:"payment_key_id"`
	LogFile               string   `toml:"log_file"`
	PrefsPath             string   `toml:"prefs_path"`
	PollSeconds           *int     `toml:"poll_seconds"`
	RequestsPerSecond     float64  `toml:"requests_per_second"`
	FreeShippingThreshold *float64 `toml:"free_shipping_threshold"`
	ShippingFee           *float64 `toml:"shipping_fee"`
	RoleRedirectDelayMS   *int     `toml:"role_redirect_delay_ms"`
	ReconnectAttempts     *int     `toml:"reconnect_attempts"`
	ReconnectDelayMS      *int     `toml:"reconnect_delay_ms"`
	Currency              string   `toml:"currency"`
	StoreName             string   `toml:"store_name"`
	PaymentBridgeAddr     string   `toml:"payment_bridge_addr"`
}

// Load reads the TOML file at path (default location when empty), then
// overlays a .env file from the working directory and the process
// environment. A missing config or .env file is not an error.
func Load(path string) (Config, error) {
	return load(path, defaultEnvFile)
}

func load(path, envFile string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw fileConfig
	bytes, err := readOptional(resolved)
	if err != nil {
		return Config{}, err
	}
	if bytes != nil {
		if err := toml.Unmarshal(bytes, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	env, err := readEnv(envFile)
	if err != nil {
		return Config{}, err
	}
	overlay(&raw.APIURL, env, EnvAPIURL)
	overlay(&raw.SocketURL, env, EnvSocketURL)
	overlay(&raw.AdminPanelURL, env, EnvAdminPanelURL)
	overlay(&raw.PaymentKeyID, env, EnvPaymentKeyID)

	cfg := Config{
		APIURL:                orDefault(raw.APIURL, defaultAPIURL),
		AdminPanelURL:         orDefault(raw.AdminPanelURL, defaultAdminPanelURL),
		PaymentKeyID:          strings.TrimSpace(raw.PaymentKeyID),
		LogFile:               mustExpand(orDefault(raw.LogFile, defaultLogFile)),
		PrefsPath:             mustExpand(orDefault(raw.PrefsPath, defaultPrefsPath)),
		PollInterval:          time.Duration(intOr(raw.PollSeconds, defaultPollSeconds)) * time.Second,
		RequestsPerSecond:     raw.RequestsPerSecond,
		FreeShippingThreshold: floatOr(raw.FreeShippingThreshold, defaultFreeShippingThreshold),
		ShippingFee:           floatOr(raw.ShippingFee, defaultShippingFee),
		RoleRedirectDelay:     time.Duration(intOr(raw.RoleRedirectDelayMS, defaultRoleRedirectDelayMS)) * time.Millisecond,
		ReconnectAttempts:     intOr(raw.ReconnectAttempts, defaultReconnectAttempts),
		ReconnectDelay:        time.Duration(intOr(raw.ReconnectDelayMS, defaultReconnectDelayMS)) * time.Millisecond,
		Currency:              strings.ToUpper(orDefault(raw.Currency, defaultCurrency)),
		StoreName:             orDefault(raw.StoreName, defaultStoreName),
		PaymentBridgeAddr:     orDefault(raw.PaymentBridgeAddr, defaultPaymentBridgeAddr),
	}
	if cfg.RequestsPerSecond < 0 {
		cfg.RequestsPerSecond = 0
	}
	cfg.SocketURL = strings.TrimSpace(raw.SocketURL)
	if cfg.SocketURL == "" {
		cfg.SocketURL, err = deriveSocketURL(cfg.APIURL)
		if err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

// deriveSocketURL maps http(s)://host/api to ws(s)://host/ws.
func deriveSocketURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api") + "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

func readOptional(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return bytes, nil
}

// readEnv parses envFile without touching the process environment. Process
// variables win over the file.
func readEnv(envFile string) (map[string]string, error) {
	env := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			env = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read env file: %w", err)
		}
	}
	for _, key := range []string{EnvAPIURL, EnvSocketURL, EnvAdminPanelURL, EnvPaymentKeyID} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env, nil
}

func overlay(dst *string, env map[string]string, key string) {
	if v := strings.TrimSpace(env[key]); v != "" {
		*dst = v
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func intOr(v *int, def int) int {
	if v == nil || *v < 0 {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil || *v < 0 {
		return def
	}
	return *v
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
