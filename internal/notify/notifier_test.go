package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap/zaptest"

	"jats/internal/helper"
	"jats/internal/models"
)

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(c tgbot.Chattable) (tgbot.Message, error) {
	if f.err != nil {
		return tgbot.Message{}, f.err
	}
	if m, ok := c.(tgbot.MessageConfig); ok {
		f.sent = append(f.sent, m.Text)
	}
	return tgbot.Message{}, nil
}

func newFake(t *testing.T, at time.Time) (*Telegram, *fakeSender) {
	t.Helper()
	fs := &fakeSender{}
	tg := newTelegram(fs, TelegramConfig{
		ChatID: 7,
		Venue:  "Upbit",
		Quiet: Quiet{
			Enabled: true,
			From:    helper.ClockTime{Hour: 22},
			To:      helper.ClockTime{Hour: 8},
			Loc:     time.UTC,
		},
	}, zaptest.NewLogger(t))
	tg.now = func() time.Time { return at }
	return tg, fs
}

func TestQuietHoursSuppressSend(t *testing.T) {
	ctx := context.Background()
	tg, fs := newFake(t, time.Date(2024, 6, 3, 23, 30, 0, 0, time.UTC))

	if tg.Send(ctx, "buy") {
		t.Error("regular message must be suppressed in quiet hours")
	}
	if !tg.SendCritical(ctx, "fatal") {
		t.Error("critical message must bypass quiet hours")
	}
	if len(fs.sent) != 1 || fs.sent[0] != "[Upbit]\nfatal" {
		t.Errorf("unexpected deliveries: %q", fs.sent)
	}
}

func TestSendOutsideQuietHours(t *testing.T) {
	tg, fs := newFake(t, time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC))
	if !tg.Sendf(context.Background(), "price %d", 100) {
		t.Fatal("expected delivery")
	}
	if fs.sent[0] != "[Upbit]\nprice 100" {
		t.Errorf("unexpected text %q", fs.sent[0])
	}
}

func TestQuietBoundariesInclusive(t *testing.T) {
	q := Quiet{Enabled: true, From: helper.ClockTime{Hour: 22}, To: helper.ClockTime{Hour: 8}}
	for _, tc := range []struct {
		at   time.Time
		want bool
	}{
		{time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 1, 1, 8, 1, 0, 0, time.UTC), false},
		{time.Date(2024, 1, 1, 21, 59, 0, 0, time.UTC), false},
	} {
		if got := q.active(tc.at); got != tc.want {
			t.Errorf("active(%s) = %v, want %v", tc.at.Format("15:04"), got, tc.want)
		}
	}
	if (Quiet{}).active(time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)) {
		t.Error("disabled window must never be active")
	}
}

func TestSendFailureReported(t *testing.T) {
	tg, fs := newFake(t, time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC))
	fs.err = errors.New("network down")
	if tg.Send(context.Background(), "x") {
		t.Error("failed delivery must return false")
	}
}

func TestHandleCommands(t *testing.T) {
	ctx := context.Background()
	tg, fs := newFake(t, time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC))

	msg := func(chat int64, text string) *tgbot.Message {
		return &tgbot.Message{
			Text:     text,
			Chat:     &tgbot.Chat{ID: chat},
			From:     &tgbot.User{UserName: "op"},
			Entities: []tgbot.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
		}
	}

	tg.handle(ctx, msg(99, "/sell"))
	tg.handle(ctx, msg(7, "/sell"))
	tg.handle(ctx, msg(7, "/unknown"))

	select {
	case c := <-tg.Commands():
		if c.Kind != models.CommandSell || c.From != "op" {
			t.Errorf("unexpected command %+v", c)
		}
	default:
		t.Fatal("expected a command from the configured chat")
	}
	select {
	case c := <-tg.Commands():
		t.Errorf("foreign chat command leaked: %+v", c)
	default:
	}
	if len(fs.sent) != 1 {
		t.Errorf("unknown command must get a hint, got %q", fs.sent)
	}
}

func TestStdout(t *testing.T) {
	s := NewStdout("KIS", zaptest.NewLogger(t))
	if !s.Send(context.Background(), "x") || !s.SendCritical(context.Background(), "y") {
		t.Error("stdout notifier always delivers")
	}
	if s.Commands() != nil {
		t.Error("stdout has no commands")
	}
}
