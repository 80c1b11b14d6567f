package upbit

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"jats/internal/models"
)

const (
	defaultBaseURL = "https://api.upbit.com/v1"
	defaultWSURL   = "wss://api.upbit.com/websocket/v1"
	quoteCurrency  = "KRW"
)

type Config struct {
	AccessKey         string
	SecretKey         string
	BaseURL           string
	WebsocketURL      string
	RequestsPerMinute int
	Timeout           time.Duration
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.Logger

	stream *Stream
}

func New(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.WebsocketURL == "" {
		cfg.WebsocketURL = defaultWSURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	burst := cfg.RequestsPerMinute / 6
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), burst),
		log:     log.Named("upbit"),
	}
}

func (c *Client) Name() string { return "Upbit" }

func (c *Client) Venue() models.Venue {
	return models.Venue{
		Name:             c.Name(),
		QuoteCurrency:    quoteCurrency,
		MinOrderNotional: 5000,
		QuantityStep:     1e-8,
	}
}

func (c *Client) AssetOf(market string) string {
	if i := strings.IndexByte(market, '-'); i >= 0 {
		return market[i+1:]
	}
	return market
}

// token: JWT для приватных запросов; query_hash считается по той же строке, что уходит на биржу.
func (c *Client) token(query string) (string, error) {
	claims := jwt.MapClaims{
		"access_key": c.cfg.AccessKey,
		"nonce":      uuid.NewString(),
	}
	if query != "" {
		h := sha512.Sum512([]byte(query))
		claims["query_hash"] = hex.EncodeToString(h[:])
		claims["query_hash_alg"] = "SHA512"
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.cfg.SecretKey))
}

// do выполняет запрос. Для GET/DELETE params уходят в query, для POST: JSON-телом.
func (c *Client) do(ctx context.Context, op, method, path string, params url.Values, private bool, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Transient(op, err)
	}

	query := params.Encode()
	u := c.cfg.BaseURL + path
	var body io.Reader
	if method == http.MethodPost {
		payload := make(map[string]string, len(params))
		for k := range params {
			payload[k] = params.Get(k)
		}
		b, err := sonic.ConfigStd.Marshal(payload)
		if err != nil {
			return models.Transient(op, errors.Wrap(err, "encode body"))
		}
		body = bytes.NewReader(b)
	} else if query != "" {
		u += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return models.Transient(op, errors.Wrap(err, "build request"))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if private {
		tok, err := c.token(query)
		if err != nil {
			return models.FatalAuth(op, errors.Wrap(err, "sign jwt"))
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Transient(op, errors.Wrap(err, "http"))
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return classify(op, resp.StatusCode, rb)
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(rb, out); err != nil {
		return models.Transient(op, errors.Wrapf(err, "decode %s", path))
	}
	return nil
}

func classify(op string, status int, body []byte) error {
	var e errorResponse
	_ = sonic.Unmarshal(body, &e)
	msg := strings.TrimSpace(string(body))
	if e.Error.Name != "" {
		msg = e.Error.Name + ": " + e.Error.Message
	}
	err := errors.Errorf("http %d: %s", status, msg)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return models.FatalAuth(op, err)
	case status >= 500:
		return models.ServerError(op, err)
	default:
		return models.Transient(op, err)
	}
}
