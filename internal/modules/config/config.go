package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"jats/internal/helper"
	"jats/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	envPrefix         = "JATS"
)

// Flags: аргументы командной строки.
type Flags struct {
	Platform string
	Env      string
	Path     string
	Interval time.Duration
}

// Config ...
type Config struct {
	Platform string         `mapstructure:"platform"`
	Env      string         `mapstructure:"env"`
	Service  ServiceConfig  `mapstructure:"service"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Upbit    UpbitConfig    `mapstructure:"upbit"`
	KIS      KISConfig      `mapstructure:"kis"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Lock     LockConfig     `mapstructure:"lock"`
	Tracing  TracingConfig  `mapstructure:"tracing"`

	settings map[string]any
}

type ServiceConfig struct {
	Name       string `mapstructure:"name"`
	HealthAddr string `mapstructure:"health_addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console | json
	File   string `mapstructure:"file"`
}

type StrategyConfig struct {
	RSIPeriod        int     `mapstructure:"rsi_period"`
	MACDFast         int     `mapstructure:"macd_fast"`
	MACDSlow         int     `mapstructure:"macd_slow"`
	MACDSignal       int     `mapstructure:"macd_signal"`
	MAWindows        []int   `mapstructure:"ma_windows"`
	MACrossFast      int     `mapstructure:"ma_cross_fast"`
	MACrossSlow      int     `mapstructure:"ma_cross_slow"`
	RSIOversold      float64 `mapstructure:"rsi_oversold"`
	RSIOverbought    float64 `mapstructure:"rsi_overbought"`
	Timeframe        string  `mapstructure:"timeframe"`
	CandleCount      int     `mapstructure:"candle_count"`
	ExitOnStrongSell bool    `mapstructure:"exit_on_strong_sell"`

	TF models.Timeframe `mapstructure:"-"`
}

type RiskConfig struct {
	// от цены входа, %
	StopLossPercent float64 `mapstructure:"stop_loss_percent"`
	// трейлинг от максимума, %
	StopLossPercentHigh   float64 `mapstructure:"stop_loss_percent_high"`
	MaxInvestmentPerTrade float64 `mapstructure:"max_investment_per_trade"`
	MaxDailyLoss          float64 `mapstructure:"max_daily_loss"`
	StatsResetTime        string  `mapstructure:"stats_reset_time"`

	ResetAt helper.ClockTime `mapstructure:"-"`
}

type TradingConfig struct {
	Markets           []string      `mapstructure:"markets"`
	MaxMarkets        int           `mapstructure:"max_markets"`
	Timezone          string        `mapstructure:"timezone"`
	ShortInterval     time.Duration `mapstructure:"short_interval"`
	MediumInterval    time.Duration `mapstructure:"medium_interval"`
	LongInterval      time.Duration `mapstructure:"long_interval"`
	OrderPollInterval time.Duration `mapstructure:"order_poll_interval"`
	OrderPollAttempts int           `mapstructure:"order_poll_attempts"`
	StaleOrderAge     time.Duration `mapstructure:"stale_order_age"`
	CooldownPerMarket time.Duration `mapstructure:"cooldown_per_market"`
	HistoryLimit      int           `mapstructure:"history_limit"`
	MaxServerErrors   int           `mapstructure:"max_server_errors"`

	Location *time.Location `mapstructure:"-"`
}

type UpbitConfig struct {
	AccessKey         string        `mapstructure:"access_key"`
	SecretKey         string        `mapstructure:"secret_key"`
	BaseURL           string        `mapstructure:"base_url"`
	WebsocketURL      string        `mapstructure:"websocket_url"`
	Websocket         bool          `mapstructure:"websocket"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type KISConfig struct {
	AppKey            string        `mapstructure:"app_key"`
	AppSecret         string        `mapstructure:"app_secret"`
	AccountNumber     string        `mapstructure:"account_number"`
	AccountCode       string        `mapstructure:"account_code"`
	BaseURL           string        `mapstructure:"base_url"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	Token      string        `mapstructure:"token"`
	ChatID     int64         `mapstructure:"chat_id"`
	Commands   bool          `mapstructure:"commands"`
	Timeout    time.Duration `mapstructure:"timeout"`
	QuietHours QuietHours    `mapstructure:"quiet_hours"`
}

type QuietHours struct {
	Enabled bool   `mapstructure:"enabled"`
	Start   string `mapstructure:"start"`
	End     string `mapstructure:"end"`

	From helper.ClockTime `mapstructure:"-"`
	To   helper.ClockTime `mapstructure:"-"`
}

type JournalConfig struct {
	DSN string `mapstructure:"dsn"`
}

type LockConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	Key       string        `mapstructure:"key"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type TracingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

func setDefaults(v *viper.Viper) {
	for k, val := range map[string]any{
		"platform": "upbit",
		"env":      "dev",

		"service.name":        "jats",
		"service.health_addr": ":8080",

		"logging.level":  "info",
		"logging.format": "console",
		"logging.file":   "",

		"strategy.rsi_period":          14,
		"strategy.macd_fast":           12,
		"strategy.macd_slow":           26,
		"strategy.macd_signal":         9,
		"strategy.ma_windows":          []int{5, 20, 60, 120},
		"strategy.ma_cross_fast":       5,
		"strategy.ma_cross_slow":       20,
		"strategy.rsi_oversold":        30.0,
		"strategy.rsi_overbought":      70.0,
		"strategy.timeframe":           "60m",
		"strategy.candle_count":        200,
		"strategy.exit_on_strong_sell": false,

		"risk.stop_loss_percent":        3.0,
		"risk.stop_loss_percent_high":   2.0,
		"risk.max_investment_per_trade": 100000.0,
		"risk.max_daily_loss":           50000.0,
		"risk.stats_reset_time":         "06:00",

		"trading.markets":             []string{},
		"trading.max_markets":         10,
		"trading.timezone":            "Local",
		"trading.short_interval":      "10s",
		"trading.medium_interval":     "1m",
		"trading.long_interval":       "1h",
		"trading.order_poll_interval": "1s",
		"trading.order_poll_attempts": 15,
		"trading.stale_order_age":     "5m",
		"trading.cooldown_per_market": "5m",
		"trading.history_limit":       1000,
		"trading.max_server_errors":   5,

		"upbit.access_key":          "",
		"upbit.secret_key":          "",
		"upbit.base_url":            "https://api.upbit.com/v1",
		"upbit.websocket_url":       "wss://api.upbit.com/websocket/v1",
		"upbit.websocket":           false,
		"upbit.requests_per_minute": 30,
		"upbit.timeout":             "10s",

		"kis.app_key":             "",
		"kis.app_secret":          "",
		"kis.account_number":      "",
		"kis.account_code":        "01",
		"kis.base_url":            "",
		"kis.requests_per_second": 20,
		"kis.timeout":             "10s",

		"telegram.token":               "",
		"telegram.chat_id":             0,
		"telegram.commands":            true,
		"telegram.timeout":             "10s",
		"telegram.quiet_hours.enabled": true,
		"telegram.quiet_hours.start":   "22:00",
		"telegram.quiet_hours.end":     "08:00",

		"journal.dsn": "",

		"lock.redis_addr": "",
		"lock.password":   "",
		"lock.db":         0,
		"lock.key":        "jats:instance",
		"lock.ttl":        "3m",

		"tracing.enabled": false,
		"tracing.host":    "localhost",
		"tracing.port":    6831,
	} {
		v.SetDefault(k, val)
	}
}

func NewConfig(f Flags) (*Config, error) {
	return Load(f)
}

// Load читает YAML (с подстановкой ${VAR}), накладывает JATS_* и флаги.
func Load(f Flags) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, explicit := f.Path, f.Path != ""
	if path == "" {
		path = os.Getenv(configFilePathENV)
		explicit = path != ""
	}
	if path == "" {
		env := f.Env
		if env == "" {
			env = "dev"
		}
		path = filepath.Join("configs", env+"_config.yaml")
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := v.ReadConfig(bytes.NewReader([]byte(os.ExpandEnv(string(raw))))); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case explicit || !os.IsNotExist(err):
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	if f.Platform != "" {
		v.Set("platform", f.Platform)
	}
	if f.Env != "" {
		v.Set("env", f.Env)
	}
	if f.Interval > 0 {
		v.Set("trading.short_interval", f.Interval.String())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.settings = v.AllSettings()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет значения и заполняет разобранные поля.
func (c *Config) Validate() error {
	c.Platform = strings.ToLower(strings.TrimSpace(c.Platform))
	switch c.Platform {
	case "upbit":
		if c.Upbit.AccessKey == "" || c.Upbit.SecretKey == "" {
			return errors.New("upbit: access_key and secret_key are required")
		}
	case "kis":
		if c.KIS.AppKey == "" || c.KIS.AppSecret == "" || c.KIS.AccountNumber == "" {
			return errors.New("kis: app_key, app_secret and account_number are required")
		}
	default:
		return errors.Errorf("unknown platform %q", c.Platform)
	}
	switch c.Env {
	case "dev", "prod":
	default:
		return errors.Errorf("unknown env %q", c.Env)
	}

	s := &c.Strategy
	if s.RSIPeriod <= 0 || s.MACDFast <= 0 || s.MACDSlow <= 0 || s.MACDSignal <= 0 {
		return errors.New("strategy: periods must be positive")
	}
	if s.MACDFast >= s.MACDSlow {
		return errors.Errorf("strategy: macd_fast (%d) must be below macd_slow (%d)", s.MACDFast, s.MACDSlow)
	}
	if !containsInt(s.MAWindows, s.MACrossFast) || !containsInt(s.MAWindows, s.MACrossSlow) {
		return errors.Errorf("strategy: ma cross windows %d/%d must be in ma_windows %v", s.MACrossFast, s.MACrossSlow, s.MAWindows)
	}
	tf, err := helper.ParseTimeframe(s.Timeframe)
	if err != nil {
		return errors.Wrap(err, "strategy")
	}
	s.TF = tf
	if c.Platform == "kis" {
		if !tf.Daily {
			return errors.Errorf("kis: only daily timeframe is supported, got %s", s.Timeframe)
		}
		if len(c.Trading.Markets) == 0 {
			return errors.New("kis: trading.markets is required")
		}
	}

	r := &c.Risk
	if r.StopLossPercent <= 0 || r.StopLossPercentHigh <= 0 || r.MaxInvestmentPerTrade <= 0 || r.MaxDailyLoss <= 0 {
		return errors.New("risk: limits must be positive")
	}
	if r.ResetAt, err = helper.ParseClock(r.StatsResetTime); err != nil {
		return errors.Wrap(err, "risk.stats_reset_time")
	}

	t := &c.Trading
	if t.ShortInterval <= 0 || t.ShortInterval > t.MediumInterval || t.MediumInterval > t.LongInterval {
		return errors.Errorf("trading: intervals must satisfy 0 < short <= medium <= long (%s, %s, %s)",
			t.ShortInterval, t.MediumInterval, t.LongInterval)
	}
	if t.OrderPollAttempts < 1 || t.OrderPollAttempts > 60 {
		return errors.Errorf("trading: order_poll_attempts must be in [1, 60], got %d", t.OrderPollAttempts)
	}
	if t.Location, err = time.LoadLocation(t.Timezone); err != nil {
		return errors.Wrap(err, "trading.timezone")
	}

	q := &c.Telegram.QuietHours
	if q.From, err = helper.ParseClock(q.Start); err != nil {
		return errors.Wrap(err, "telegram.quiet_hours.start")
	}
	if q.To, err = helper.ParseClock(q.End); err != nil {
		return errors.Wrap(err, "telegram.quiet_hours.end")
	}
	return nil
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

var secretKeys = map[string][]string{
	"upbit":    {"access_key", "secret_key"},
	"kis":      {"app_key", "app_secret", "account_number"},
	"telegram": {"token"},
	"journal":  {"dsn"},
	"lock":     {"password"},
}

// Dump: действующая конфигурация в YAML, секреты скрыты.
func (c *Config) Dump() ([]byte, error) {
	out := make(map[string]any, len(c.settings))
	for k, v := range c.settings {
		out[k] = v
	}
	for section, keys := range secretKeys {
		m, ok := out[section].(map[string]any)
		if !ok {
			continue
		}
		red := make(map[string]any, len(m))
		for k, v := range m {
			red[k] = v
		}
		for _, k := range keys {
			if s, ok := red[k].(string); ok && s != "" {
				red[k] = "***"
			}
		}
		out[section] = red
	}
	return yaml.Marshal(out)
}
