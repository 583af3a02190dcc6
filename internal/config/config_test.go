package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAPIURL, EnvSocketURL, EnvAdminPanelURL, EnvPaymentKeyID} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := load(filepath.Join(home, "does-not-exist.toml"), "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.SocketURL != "ws://localhost:5000/ws" {
		t.Fatalf("SocketURL = %q, want ws://localhost:5000/ws", cfg.SocketURL)
	}
	if cfg.AdminPanelURL != defaultAdminPanelURL {
		t.Fatalf("AdminPanelURL = %q, want %q", cfg.AdminPanelURL, defaultAdminPanelURL)
	}
	wantLog, err := expandPath(defaultLogFile)
	if err != nil {
		t.Fatalf("expandPath(defaultLogFile) returned error: %v", err)
	}
	if cfg.LogFile != wantLog {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, wantLog)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("PollInterval = %v, want 30s", cfg.PollInterval)
	}
	if cfg.FreeShippingThreshold != 500 || cfg.ShippingFee != 50 {
		t.Fatalf("shipping = %v/%v, want 500/50", cfg.FreeShippingThreshold, cfg.ShippingFee)
	}
	if cfg.RoleRedirectDelay != 2*time.Second {
		t.Fatalf("RoleRedirectDelay = %v, want 2s", cfg.RoleRedirectDelay)
	}
	if cfg.ReconnectAttempts != 5 || cfg.ReconnectDelay != time.Second {
		t.Fatalf("reconnect = %d/%v, want 5/1s", cfg.ReconnectAttempts, cfg.ReconnectDelay)
	}
	if cfg.Currency != "INR" || cfg.StoreName != "ShopAura" {
		t.Fatalf("store = %q/%q", cfg.Currency, cfg.StoreName)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := writeFile(t, "config.toml", `
api_url = "  https://shop.example.com/api  "
log_file = "  ~/logs/shop.log  "
poll_seconds = 10
requests_per_second = 4.5
free_shipping_threshold = 999
shipping_fee = 0
currency = "usd"
`)

	cfg, err := load(path, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "https://shop.example.com/api" {
		t.Fatalf("APIURL = %q", cfg.APIURL)
	}
	if cfg.SocketURL != "wss://shop.example.com/ws" {
		t.Fatalf("SocketURL = %q, want wss://shop.example.com/ws", cfg.SocketURL)
	}
	if !strings.HasPrefix(cfg.LogFile, home) {
		t.Fatalf("LogFile = %q, want it under HOME %q", cfg.LogFile, home)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("PollInterval = %v, want 10s", cfg.PollInterval)
	}
	if cfg.RequestsPerSecond != 4.5 {
		t.Fatalf("RequestsPerSecond = %v, want 4.5", cfg.RequestsPerSecond)
	}
	if cfg.FreeShippingThreshold != 999 || cfg.ShippingFee != 0 {
		t.Fatalf("shipping = %v/%v, want 999/0", cfg.FreeShippingThreshold, cfg.ShippingFee)
	}
	if cfg.Currency != "USD" {
		t.Fatalf("Currency = %q, want USD", cfg.Currency)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := writeFile(t, "config.toml", `
api_url = "   "
store_name = ""
`)

	cfg, err := load(path, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != defaultAPIURL {
		t.Fatalf("APIURL = %q, want %q", cfg.APIURL, defaultAPIURL)
	}
	if cfg.StoreName != defaultStoreName {
		t.Fatalf("StoreName = %q, want %q", cfg.StoreName, defaultStoreName)
	}
}

func TestLoad_EnvironmentOverridesFileAndDotenv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := writeFile(t, "config.toml", `
api_url = "http://file.example/api"
admin_panel_url = "http://file.example:5174"
`)
	envFile := writeFile(t, ".env", `
VITE_API_URL=http://dotenv.example/api
VITE_RAZORPAY_KEY_ID=rzp_test_dotenv
`)
	t.Setenv(EnvAPIURL, "http://process.example/api")

	cfg, err := load(path, envFile)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIURL != "http://process.example/api" {
		t.Fatalf("APIURL = %q, want the process value", cfg.APIURL)
	}
	if cfg.PaymentKeyID != "rzp_test_dotenv" {
		t.Fatalf("PaymentKeyID = %q, want the .env value", cfg.PaymentKeyID)
	}
	if cfg.AdminPanelURL != "http://file.example:5174" {
		t.Fatalf("AdminPanelURL = %q, want the file value", cfg.AdminPanelURL)
	}
	if cfg.SocketURL != "ws://process.example/ws" {
		t.Fatalf("SocketURL = %q, want it derived from the process api url", cfg.SocketURL)
	}
}

func TestLoad_MissingDotenvIsIgnored(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)
	if _, err := load("", filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", `api_url = [`)
	_, err := load(path, "")
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestDeriveSocketURL(t *testing.T) {
	tests := []struct {
		api  string
		want string
	}{
		{"http://localhost:5000/api", "ws://localhost:5000/ws"},
		{"https://shop.example.com/api/", "wss://shop.example.com/ws"},
		{"http://10.0.0.2:8080", "ws://10.0.0.2:8080/ws"},
	}
	for _, tt := range tests {
		got, err := deriveSocketURL(tt.api)
		if err != nil {
			t.Fatalf("deriveSocketURL(%q) returned error: %v", tt.api, err)
		}
		if got != tt.want {
			t.Fatalf("deriveSocketURL(%q) = %q, want %q", tt.api, got, tt.want)
		}
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}
