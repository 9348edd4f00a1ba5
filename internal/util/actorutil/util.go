package actorutil

import (
	"log/slog"
	"time"

	"github.com/hargall/dlt645mqtt/internal/core/domain"
	"github.com/hargall/dlt645mqtt/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {

		// create a new logger
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps a button press to its meter command.
// Unknown device ids and payloads other than the press payload map to
// (nil, nil).
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	if cmd.Payload != mqtt.MQTT_PAYLOAD_PRESS {
		return nil, nil
	}
	switch cmd.DeviceId {
	case domain.BUTTON_ID_RELAY_TRIP:
		return domain.RelayControlRequest{
			Connect: false,
		}, nil
	case domain.BUTTON_ID_RELAY_CLOSE:
		return domain.RelayControlRequest{
			Connect: true,
		}, nil
	case domain.BUTTON_ID_SET_DATE:
		return domain.SyncClockRequest{
			Scope: domain.CLOCK_SYNC_DATE,
		}, nil
	case domain.BUTTON_ID_SET_TIME:
		return domain.SyncClockRequest{
			Scope: domain.CLOCK_SYNC_TIME,
		}, nil
	case domain.BUTTON_ID_TIME_BROADCAST:
		return domain.SyncClockRequest{
			Scope: domain.CLOCK_SYNC_BROADCAST,
		}, nil
	}
	return nil, nil
}
