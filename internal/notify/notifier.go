package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"jats/internal/models"
)

// Notifier доставляет сообщения оператору. Best-effort, ошибки только логируются.
type Notifier interface {
	Send(ctx context.Context, msg string) bool
	Sendf(ctx context.Context, format string, args ...any) bool
	// SendCritical игнорирует тихие часы.
	SendCritical(ctx context.Context, msg string) bool
}

// CommandSource: входящие команды оператора.
type CommandSource interface {
	Commands() <-chan models.Command
}

// Stdout: заглушка без Telegram, пишет в лог.
type Stdout struct {
	prefix string
	log    *zap.Logger
}

func NewStdout(venue string, log *zap.Logger) *Stdout {
	return &Stdout{prefix: venuePrefix(venue), log: log.Named("notify")}
}

func (s *Stdout) Send(_ context.Context, msg string) bool {
	s.log.Info(s.prefix + msg)
	return true
}

func (s *Stdout) Sendf(ctx context.Context, format string, args ...any) bool {
	return s.Send(ctx, fmt.Sprintf(format, args...))
}

func (s *Stdout) SendCritical(_ context.Context, msg string) bool {
	s.log.Warn(s.prefix + msg)
	return true
}

// Commands: у заглушки команд нет, канал никогда не готов.
func (s *Stdout) Commands() <-chan models.Command { return nil }

func venuePrefix(venue string) string {
	if venue == "" {
		return ""
	}
	return "[" + venue + "]\n"
}
