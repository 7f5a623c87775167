// Package logging builds the zap logger used across the bot and adapts it for fx.
package logging

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hxnx/jukebot/config"
)

var Module = fx.Module("logging",
	fx.Provide(NewLogger),
)

// New builds a logger from the log settings: SILENT discards everything, NODE_ENV=production
// selects JSON output and anything else the console encoder.
func New(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Silent {
		return zap.NewNop(), nil
	}

	var zapConfig zap.Config
	if cfg.IsProduction() {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.LogLevel))

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create zap logger: %w", err)
	}

	return logger, nil
}

func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug", "verbose", "http", "silly":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

type NewLoggerParams struct {
	fx.In
	Cfg *config.Config
	LC  fx.Lifecycle
}

func NewLogger(params NewLoggerParams) (*zap.Logger, error) {
	logger, err := New(params.Cfg)
	if err != nil {
		return nil, err
	}

	params.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			// Sync on a console writer returns EINVAL on some platforms.
			_ = logger.Sync()
			return nil
		},
	})

	return logger, nil
}

// FxLogger routes fx lifecycle events through zap.
type FxLogger struct {
	logger *zap.SugaredLogger
}

func NewFxLogger(logger *zap.Logger) fxevent.Logger {
	return &FxLogger{logger: logger.Named("fx").Sugar()}
}

func (l *FxLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			l.logger.Errorf("OnStart hook failed: %s: %v", e.FunctionName, e.Err)
			return
		}
		l.logger.Debugf("OnStart hook executed: %s (%s)", e.FunctionName, e.Runtime)
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			l.logger.Errorf("OnStop hook failed: %s: %v", e.FunctionName, e.Err)
			return
		}
		l.logger.Debugf("OnStop hook executed: %s (%s)", e.FunctionName, e.Runtime)
	case *fxevent.Provided:
		if e.Err != nil {
			l.logger.Errorf("provide failed: %v", e.Err)
			return
		}
		l.logger.Debugf("provided: %s", strings.Join(e.OutputTypeNames, ", "))
	case *fxevent.Invoked:
		if e.Err != nil {
			l.logger.Errorf("invoke failed: %s: %v", e.FunctionName, e.Err)
		}
	case *fxevent.Stopping:
		l.logger.Infof("received %s, stopping", strings.ToUpper(e.Signal.String()))
	case *fxevent.RollingBack:
		l.logger.Errorf("start failed, rolling back: %v", e.StartErr)
	case *fxevent.Started:
		if e.Err != nil {
			l.logger.Errorf("start failed: %v", e.Err)
			return
		}
		l.logger.Info("started")
	default:
		l.logger.Debugf("fx event: %T", event)
	}
}
