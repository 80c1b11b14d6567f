package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"jats/internal/helper"
	"jats/internal/models"
)

type sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Quiet: окно тихих часов в локальной зоне.
type Quiet struct {
	Enabled bool
	From    helper.ClockTime
	To      helper.ClockTime
	Loc     *time.Location
}

func (q Quiet) active(t time.Time) bool {
	if !q.Enabled {
		return false
	}
	if q.Loc != nil {
		t = t.In(q.Loc)
	}
	return helper.InWindow(t, q.From, q.To)
}

type TelegramConfig struct {
	Token   string
	ChatID  int64
	Venue   string
	Timeout time.Duration
	Quiet   Quiet
}

// Telegram: нотифайер + команды /status /sell /resetstats из одного чата.
type Telegram struct {
	bot    sender
	api    *tgbot.BotAPI
	chatID int64
	prefix string
	quiet  Quiet
	now    func() time.Time
	log    *zap.Logger

	commands chan models.Command
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewTelegram(cfg TelegramConfig, log *zap.Logger) (*Telegram, error) {
	if cfg.Token == "" || cfg.ChatID == 0 {
		return nil, errors.New("telegram: token and chat_id are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	api, err := tgbot.NewBotAPIWithClient(cfg.Token, tgbot.APIEndpoint, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, errors.Wrap(err, "telegram: init bot")
	}
	t := newTelegram(api, cfg, log)
	t.api = api
	return t, nil
}

func newTelegram(bot sender, cfg TelegramConfig, log *zap.Logger) *Telegram {
	return &Telegram{
		bot:      bot,
		chatID:   cfg.ChatID,
		prefix:   venuePrefix(cfg.Venue),
		quiet:    cfg.Quiet,
		now:      time.Now,
		log:      log.Named("telegram"),
		commands: make(chan models.Command, 8),
	}
}

func (t *Telegram) Send(ctx context.Context, msg string) bool {
	if t.quiet.active(t.now()) {
		t.log.Debug("тихие часы, сообщение не отправлено", zap.String("msg", msg))
		return false
	}
	return t.deliver(ctx, msg)
}

func (t *Telegram) Sendf(ctx context.Context, format string, args ...any) bool {
	return t.Send(ctx, fmt.Sprintf(format, args...))
}

func (t *Telegram) SendCritical(ctx context.Context, msg string) bool {
	return t.deliver(ctx, msg)
}

func (t *Telegram) deliver(ctx context.Context, msg string) bool {
	if ctx.Err() != nil {
		return false
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, t.prefix+msg)); err != nil {
		t.log.Warn("не удалось отправить сообщение", zap.Error(err))
		return false
	}
	return true
}

func (t *Telegram) Commands() <-chan models.Command { return t.commands }

// Start: long-polling команд. Без api (тесты) ничего не делает.
func (t *Telegram) Start() {
	if t.api == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}
	updates := t.api.GetUpdatesChan(u)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				t.handle(ctx, upd.Message)
			}
		}
	}()
}

func (t *Telegram) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.api.StopReceivingUpdates()
	t.wg.Wait()
}

func (t *Telegram) handle(ctx context.Context, m *tgbot.Message) {
	if m == nil || m.Chat == nil || m.Chat.ID != t.chatID || !m.IsCommand() {
		return
	}
	var kind models.CommandKind
	switch m.Command() {
	case "status":
		kind = models.CommandStatus
	case "sell":
		kind = models.CommandSell
	case "resetstats":
		kind = models.CommandResetStats
	default:
		t.deliver(ctx, "Неизвестная команда. Доступно: /status /sell /resetstats")
		return
	}

	from := strconv.FormatInt(m.Chat.ID, 10)
	if m.From != nil && m.From.UserName != "" {
		from = m.From.UserName
	}
	select {
	case t.commands <- models.Command{Kind: kind, From: from}:
	default:
		t.deliver(ctx, "⏳ Бот занят, повторите команду позже")
	}
}
