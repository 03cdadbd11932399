package rpc

import (
	"context"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

// Conn is a message channel to the browser.
type Conn interface {
	Ready() <-chan struct{}
	Frames() <-chan string
	Done() <-chan struct{}
	SendText(s string) error
}

// Serve waits for conn to open, pushes the language list, then answers frames
// one at a time in arrival order until conn closes or ctx ends.
func Serve(ctx context.Context, conn Conn, d *Dispatcher) error {
	select {
	case <-conn.Ready():
	case <-conn.Done():
		return appErr.New(appErr.ChannelClosed).WithMessage("channel closed before it opened")
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := conn.SendText(string(d.LanguagesFrame(ctx))); err != nil {
		return err
	}
	logger.Info(ctx, "sent initial languages")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-conn.Done():
			logger.Info(ctx, "data channel closed")
			return nil
		case frame := <-conn.Frames():
			resp := d.Handle(ctx, []byte(frame))
			if err := conn.SendText(string(resp)); err != nil {
				logger.Warn(ctx, "send response failed", zap.Error(err))
				return err
			}
		}
	}
}
