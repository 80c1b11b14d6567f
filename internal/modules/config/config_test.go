package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dev_config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimal = `
platform: upbit
env: dev
upbit:
  access_key: ${TEST_UPBIT_ACCESS}
  secret_key: plain-secret
trading:
  markets: [KRW-BTC, KRW-ETH]
`

func TestLoadDefaultsAndSubstitution(t *testing.T) {
	t.Setenv("TEST_UPBIT_ACCESS", "access-from-env")
	cfg, err := Load(Flags{Path: writeConfig(t, minimal)})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Upbit.AccessKey != "access-from-env" {
		t.Errorf("env substitution failed: %q", cfg.Upbit.AccessKey)
	}
	if cfg.Risk.StopLossPercent != 3 || cfg.Risk.StopLossPercentHigh != 2 ||
		cfg.Risk.MaxInvestmentPerTrade != 100000 || cfg.Risk.MaxDailyLoss != 50000 {
		t.Errorf("unexpected risk defaults: %+v", cfg.Risk)
	}
	if cfg.Strategy.RSIPeriod != 14 || cfg.Strategy.MACDFast != 12 || cfg.Strategy.MACDSlow != 26 || cfg.Strategy.MACDSignal != 9 {
		t.Errorf("unexpected strategy defaults: %+v", cfg.Strategy)
	}
	if len(cfg.Strategy.MAWindows) != 4 || cfg.Strategy.TF.Minutes != 60 {
		t.Errorf("unexpected ma windows / timeframe: %v %+v", cfg.Strategy.MAWindows, cfg.Strategy.TF)
	}
	if cfg.Trading.ShortInterval != 10*time.Second || cfg.Trading.OrderPollAttempts != 15 {
		t.Errorf("unexpected trading defaults: %+v", cfg.Trading)
	}
	if len(cfg.Trading.Markets) != 2 || cfg.Trading.Markets[1] != "KRW-ETH" {
		t.Errorf("markets: %v", cfg.Trading.Markets)
	}
	if cfg.Risk.ResetAt.Hour != 6 || cfg.Telegram.QuietHours.From.Hour != 22 || cfg.Telegram.QuietHours.To.Hour != 8 {
		t.Errorf("clock fields not parsed")
	}
	if cfg.Trading.Location == nil {
		t.Error("location must be resolved")
	}
}

func TestEnvOverridesAndFlags(t *testing.T) {
	t.Setenv("TEST_UPBIT_ACCESS", "a")
	t.Setenv("JATS_RISK_MAX_DAILY_LOSS", "1234")
	t.Setenv("JATS_TELEGRAM_CHAT_ID", "42")
	cfg, err := Load(Flags{Path: writeConfig(t, minimal), Interval: 30 * time.Second})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Risk.MaxDailyLoss != 1234 {
		t.Errorf("env override failed: %v", cfg.Risk.MaxDailyLoss)
	}
	if cfg.Telegram.ChatID != 42 {
		t.Errorf("chat id override failed: %v", cfg.Telegram.ChatID)
	}
	if cfg.Trading.ShortInterval != 30*time.Second {
		t.Errorf("interval flag ignored: %v", cfg.Trading.ShortInterval)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Setenv("TEST_UPBIT_ACCESS", "a")
	cases := map[string]string{
		"unknown platform": "platform: binance\n",
		"macd order":       "strategy:\n  macd_fast: 30\n",
		"cross window":     "strategy:\n  ma_cross_slow: 50\n",
		"intervals":        "trading:\n  short_interval: 5m\n",
		"poll attempts":    "trading:\n  order_poll_attempts: 0\n",
		"bad timeframe":    "strategy:\n  timeframe: 7m\n",
	}
	base := "upbit:\n  access_key: a\n  secret_key: b\n"
	for name, extra := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(Flags{Path: writeConfig(t, base+extra)}); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestMissingCredentials(t *testing.T) {
	if _, err := Load(Flags{Path: writeConfig(t, "platform: kis\n")}); err == nil {
		t.Fatal("kis without credentials must fail")
	}
}

func TestExplicitMissingFile(t *testing.T) {
	if _, err := Load(Flags{Path: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("explicit missing file must fail")
	}
}

func TestDumpRedactsSecrets(t *testing.T) {
	t.Setenv("TEST_UPBIT_ACCESS", "very-secret-access")
	cfg, err := Load(Flags{Path: writeConfig(t, minimal)})
	if err != nil {
		t.Fatal(err)
	}
	out, err := cfg.Dump()
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	if strings.Contains(s, "very-secret-access") || strings.Contains(s, "plain-secret") {
		t.Errorf("secrets leaked:\n%s", s)
	}
	if !strings.Contains(s, "max_daily_loss") {
		t.Errorf("dump must contain effective settings:\n%s", s)
	}
}

func TestKISRequiresDailyAndMarkets(t *testing.T) {
	base := `
platform: kis
kis:
  app_key: k
  app_secret: s
  account_number: "12345678"
`
	if _, err := Load(Flags{Path: writeConfig(t, base+"trading:\n  markets: [\"005930\"]\n")}); err == nil ||
		!strings.Contains(err.Error(), "daily") {
		t.Fatalf("expected daily timeframe error, got %v", err)
	}
	if _, err := Load(Flags{Path: writeConfig(t, base+"strategy:\n  timeframe: 1d\n")}); err == nil ||
		!strings.Contains(err.Error(), "markets") {
		t.Fatalf("expected markets error, got %v", err)
	}
	cfg, err := Load(Flags{Path: writeConfig(t, base+"strategy:\n  timeframe: 1d\ntrading:\n  markets: [\"005930\"]\n")})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Strategy.TF.Daily || cfg.KIS.AccountCode != "01" {
		t.Errorf("unexpected kis config: %+v %+v", cfg.Strategy.TF, cfg.KIS)
	}
}
