// Package observer defines logging hooks for sandbox execution.
package observer

import (
	"context"
	"time"

	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

// Recorder receives one callback per compile and per run.
type Recorder interface {
	ObserveCompile(ctx context.Context, languageID string, ok bool, wall time.Duration)
	ObserveRun(ctx context.Context, languageID string, exitCode int, timedOut bool, wall time.Duration)
}

// NoopRecorder discards observations.
type NoopRecorder struct{}

func (NoopRecorder) ObserveCompile(context.Context, string, bool, time.Duration)     {}
func (NoopRecorder) ObserveRun(context.Context, string, int, bool, time.Duration) {}

// LogRecorder writes observations to the structured logger at debug level.
type LogRecorder struct{}

func (LogRecorder) ObserveCompile(ctx context.Context, languageID string, ok bool, wall time.Duration) {
	logger.Debug(ctx, "sandbox compile",
		zap.String("language", languageID),
		zap.Bool("ok", ok),
		zap.Duration("wall", wall),
	)
}

func (LogRecorder) ObserveRun(ctx context.Context, languageID string, exitCode int, timedOut bool, wall time.Duration) {
	logger.Debug(ctx, "sandbox run",
		zap.String("language", languageID),
		zap.Int("exit_code", exitCode),
		zap.Bool("timed_out", timedOut),
		zap.Duration("wall", wall),
	)
}
