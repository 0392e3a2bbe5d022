package eventbus

import (
	"context"

	"github.com/annel0/crimcraft/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента eventbus.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	logger := logging.GetEventBusLogger()

	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, env *Envelope) {
		ev, err := DecodeEvent(env)
		if err != nil {
			logger.Warn("[EventBus] %s: %v", env.ID, err)
			return
		}
		logger.Debug("[EventBus] %s tick=%s %s %+v", env.ID, env.CorrelationID, env.EventType, ev)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}
