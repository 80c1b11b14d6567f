package kis

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"jats/internal/models"
)

const (
	realBaseURL    = "https://openapi.koreainvestment.com:9443"
	virtualBaseURL = "https://openapivts.koreainvestment.com:29443"
	quoteCurrency  = "KRW"
)

type Config struct {
	AppKey            string
	AppSecret         string
	AccountNumber     string
	AccountCode       string
	BaseURL           string
	Virtual           bool // демо-счёт: другой хост и tr_id с префиксом V
	RequestsPerSecond int
	Timeout           time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	token     string
	tokenTill time.Time
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = realBaseURL
		if cfg.Virtual {
			cfg.BaseURL = virtualBaseURL
		}
	}
	if cfg.AccountCode == "" {
		cfg.AccountCode = "01"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		log:     log.Named("kis"),
		now:     time.Now,
	}
}

func (c *Client) Name() string { return "KIS" }

func (c *Client) Venue() models.Venue {
	return models.Venue{
		Name:             c.Name(),
		QuoteCurrency:    quoteCurrency,
		MinOrderNotional: 0,
		QuantityStep:     1,
	}
}

func (c *Client) AssetOf(market string) string { return market }

// trID: идентификатор транзакции; торговые tr_id демо-счёта начинаются с V.
func (c *Client) trID(real string) string {
	if c.cfg.Virtual && strings.HasPrefix(real, "T") {
		return "V" + real[1:]
	}
	return real
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenTill) {
		return c.token, nil
	}

	body, _ := sonic.ConfigStd.Marshal(map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.cfg.AppKey,
		"appsecret":  c.cfg.AppSecret,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return "", models.Transient("kis.token", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", models.Transient("kis.token", errors.Wrap(err, "http"))
	}
	defer resp.Body.Close()
	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		// любой отказ в выдаче токена: проблема ключей
		if resp.StatusCode >= 500 {
			return "", models.ServerError("kis.token", errors.Errorf("http %d: %s", resp.StatusCode, rb))
		}
		return "", models.FatalAuth("kis.token", errors.Errorf("http %d: %s", resp.StatusCode, rb))
	}

	var tr tokenResponse
	if err := sonic.Unmarshal(rb, &tr); err != nil || tr.AccessToken == "" {
		return "", models.FatalAuth("kis.token", errors.Errorf("bad token response: %s", rb))
	}
	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c.token = tr.AccessToken
	c.tokenTill = c.now().Add(ttl - time.Minute)
	c.log.Info("токен обновлён", zap.Time("until", c.tokenTill))
	return c.token, nil
}

func (c *Client) dropToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// do выполняет запрос к uapi. GET передаёт params в query, POST отправляет JSON-тело.
func (c *Client) do(ctx context.Context, op, method, path, trID string, params map[string]string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Transient(op, err)
	}
	tok, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	u := c.cfg.BaseURL + path
	var body io.Reader
	if method == http.MethodPost {
		b, err := sonic.ConfigStd.Marshal(params)
		if err != nil {
			return models.Transient(op, errors.Wrap(err, "encode body"))
		}
		body = bytes.NewReader(b)
	} else if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return models.Transient(op, errors.Wrap(err, "build request"))
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("authorization", "Bearer "+tok)
	req.Header.Set("appkey", c.cfg.AppKey)
	req.Header.Set("appsecret", c.cfg.AppSecret)
	req.Header.Set("tr_id", trID)
	req.Header.Set("custtype", "P")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Transient(op, errors.Wrap(err, "http"))
	}
	defer resp.Body.Close()
	rb, _ := io.ReadAll(resp.Body)

	var head baseResponse
	_ = sonic.Unmarshal(rb, &head)
	if tokenExpired(head.MsgCode) {
		c.dropToken()
		return models.Transient(op, errors.Errorf("token rejected: %s %s", head.MsgCode, head.Msg))
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return models.FatalAuth(op, errors.Errorf("http %d: %s", resp.StatusCode, rb))
	case resp.StatusCode >= 500 && head.ResultCode == "":
		return models.ServerError(op, errors.Errorf("http %d: %s", resp.StatusCode, rb))
	case head.ResultCode != "" && head.ResultCode != "0":
		return models.Transient(op, errors.Errorf("%s: %s", head.MsgCode, strings.TrimSpace(head.Msg)))
	case resp.StatusCode/100 != 2:
		return models.Transient(op, errors.Errorf("http %d: %s", resp.StatusCode, rb))
	}

	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(rb, out); err != nil {
		return models.Transient(op, errors.Wrapf(err, "decode %s", path))
	}
	return nil
}

func tokenExpired(code string) bool {
	return code == "EGW00121" || code == "EGW00123"
}
