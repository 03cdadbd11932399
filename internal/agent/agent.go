// Package agent runs the judge agent: it keeps a signaling connection alive,
// negotiates peer links and serves RPC on every data channel that opens.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/Diwakar-Gupta/pepper/internal/agent/negotiator"
	"github.com/Diwakar-Gupta/pepper/internal/agent/rendezvous"
	"github.com/Diwakar-Gupta/pepper/internal/agent/rpc"
	"github.com/Diwakar-Gupta/pepper/internal/agent/session"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Relay is the signaling connection.
type Relay interface {
	rendezvous.Connector
	Serve(ctx context.Context) error
	Close() error
}

// Connecter establishes the relay connection, retrying as it sees fit.
type Connecter interface {
	Connect(ctx context.Context, conn rendezvous.Connector) error
}

// Peer negotiates links and yields their data channels.
type Peer interface {
	Run(ctx context.Context) error
	HandleSignal(ctx context.Context, raw json.RawMessage)
	Channels() <-chan *negotiator.Channel
}

// Background is any extra component that runs for the agent's lifetime.
type Background interface {
	Run(ctx context.Context) error
}

// Options holds the agent's collaborators. Extras may be empty.
type Options struct {
	Session    *session.Session
	Relay      Relay
	Retrier    Connecter
	Peer       Peer
	Dispatcher *rpc.Dispatcher
	Extras     []Background
}

// Agent ties the components together.
type Agent struct {
	opts Options
}

// New validates opts and creates an agent.
func New(opts Options) (*Agent, error) {
	switch {
	case opts.Session == nil:
		return nil, appErr.ValidationError("session", "required")
	case opts.Relay == nil:
		return nil, appErr.ValidationError("relay", "required")
	case opts.Retrier == nil:
		return nil, appErr.ValidationError("retrier", "required")
	case opts.Peer == nil:
		return nil, appErr.ValidationError("peer", "required")
	case opts.Dispatcher == nil:
		return nil, appErr.ValidationError("dispatcher", "required")
	}
	return &Agent{opts: opts}, nil
}

// Run blocks until ctx ends or the relay becomes unreachable. A cancelled
// ctx is a clean exit and returns nil.
func (a *Agent) Run(ctx context.Context) error {
	sess := a.opts.Session
	ctx = sess.Context(ctx)
	sess.Open(ctx)
	defer sess.Close(context.WithoutCancel(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.opts.Peer.Run(gctx) })
	g.Go(func() error { return a.serveChannels(gctx) })
	g.Go(func() error { return a.signal(gctx) })
	for _, extra := range a.opts.Extras {
		g.Go(func() error { return extra.Run(gctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// signal keeps the relay connected. A lost connection is redialled through
// the retrier; exhausting it ends the agent.
func (a *Agent) signal(ctx context.Context) error {
	defer a.opts.Relay.Close()
	for {
		if err := a.opts.Retrier.Connect(ctx, a.opts.Relay); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error(ctx, "cannot rendezvous", zap.Error(err))
			return appErr.Wrapf(err, appErr.RendezvousUnreachable, "cannot rendezvous")
		}
		logger.Info(ctx, "waiting for browser", zap.String("code", a.opts.Session.Display()))

		err := a.opts.Relay.Serve(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn(ctx, "signaling connection lost, reconnecting", zap.Error(err))
	}
}

func (a *Agent) serveChannels(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch := <-a.opts.Peer.Channels():
			if ch == nil {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := rpc.Serve(ctx, ch, a.opts.Dispatcher); err != nil && ctx.Err() == nil {
					logger.Warn(ctx, "rpc loop ended", zap.String("channel", ch.Label()), zap.Error(err))
				}
			}()
		}
	}
}
