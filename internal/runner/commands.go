package runner

import (
	"context"

	"go.uber.org/zap"

	"jats/internal/models"
)

// handleCommand: команды оператора исполняются в горутине раннера, как и тики.
func (r *Runner) handleCommand(ctx context.Context, cmd models.Command) {
	r.Log.Info("команда оператора", zap.String("kind", string(cmd.Kind)), zap.String("from", cmd.From))
	switch cmd.Kind {
	case models.CommandStatus:
		bals, err := r.balances(ctx)
		if err != nil {
			r.Notifier.SendCritical(ctx, "❗️ Не удалось получить балансы: "+err.Error())
			return
		}
		r.Notifier.SendCritical(ctx, r.summary(ctx, bals, r.now()))

	case models.CommandSell:
		pos, ok := r.Ledger.Position()
		if !ok {
			r.Notifier.SendCritical(ctx, "📭 Открытой позиции нет")
			return
		}
		if r.hasOutstanding(models.SideSell) {
			r.Notifier.SendCritical(ctx, "⏳ Продажа уже отправлена, жду исполнения")
			return
		}
		price, err := r.Exchange.CurrentPrice(ctx, pos.Market)
		if r.observe(ctx, "current_price", err) != nil {
			price = pos.EntryPrice
		}
		r.Notifier.SendCritical(ctx, "🔻 Ручная продажа "+pos.Market)
		if err := r.sell(ctx, pos, price, models.ReasonManual, r.now()); err != nil {
			r.Log.Debug("ручная продажа не выполнена", zap.Error(err))
		}

	case models.CommandResetStats:
		r.Ledger.ResetStats()
		r.Notifier.SendCritical(ctx, "🔄 Статистика сделок сброшена")

	default:
		r.Log.Warn("неизвестная команда", zap.String("kind", string(cmd.Kind)))
	}
}
