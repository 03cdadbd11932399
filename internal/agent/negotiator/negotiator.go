// Package negotiator turns signaling frames from the browser into a ready
// data channel. All negotiation work runs on one goroutine fed by a bounded
// task queue, so the signaling receive loop never waits on it.
package negotiator

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/Diwakar-Gupta/pepper/internal/agent/session"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"
)

// Signaler relays signals back to the browser.
type Signaler interface {
	EmitSignal(signal interface{}) error
}

// Config tunes the negotiator.
type Config struct {
	TaskQueue            int
	MaxPendingCandidates int
	FrameBuffer          int
}

func (c Config) withDefaults() Config {
	if c.TaskQueue <= 0 {
		c.TaskQueue = 64
	}
	if c.MaxPendingCandidates <= 0 {
		c.MaxPendingCandidates = 64
	}
	if c.FrameBuffer <= 0 {
		c.FrameBuffer = 16
	}
	return c
}

type task struct {
	name string
	run  func(ctx context.Context)
}

// inbound is a relayed signal envelope.
type inbound struct {
	From   string `json:"from"`
	Signal struct {
		Type      string                     `json:"type"`
		Offer     *webrtc.SessionDescription `json:"offer"`
		Candidate json.RawMessage            `json:"candidate"`
	} `json:"signal"`
}

// Negotiator owns the peer link of one session.
type Negotiator struct {
	cfg      Config
	factory  LinkFactory
	signaler Signaler
	session  *session.Session

	tasks    chan task
	channels chan *Channel
	view     atomic.Int32

	// Fields below are only touched on the negotiation goroutine.
	state   State
	link    PeerLink
	gen     uint64
	channel *Channel
	pending []webrtc.ICECandidateInit
}

// New creates a negotiator. Run must be started for any work to happen.
func New(cfg Config, factory LinkFactory, signaler Signaler, sess *session.Session) (*Negotiator, error) {
	if factory == nil {
		return nil, appErr.ValidationError("factory", "required")
	}
	if signaler == nil {
		return nil, appErr.ValidationError("signaler", "required")
	}
	if sess == nil {
		return nil, appErr.ValidationError("session", "required")
	}
	cfg = cfg.withDefaults()
	return &Negotiator{
		cfg:      cfg,
		factory:  factory,
		signaler: signaler,
		session:  sess,
		tasks:    make(chan task, cfg.TaskQueue),
		channels: make(chan *Channel, 4),
	}, nil
}

// State returns the last committed state. Safe from any goroutine.
func (n *Negotiator) State() State { return State(n.view.Load()) }

// Channels yields every data channel the browser opens.
func (n *Negotiator) Channels() <-chan *Channel { return n.channels }

// Run drains the task queue until ctx ends, then closes the link.
func (n *Negotiator) Run(ctx context.Context) error {
	ctx = n.session.Context(ctx)
	for {
		select {
		case <-ctx.Done():
			n.fire(context.WithoutCancel(ctx), evShutdown, nil)
			return ctx.Err()
		case t := <-n.tasks:
			n.runTask(ctx, t)
		}
	}
}

func (n *Negotiator) runTask(ctx context.Context, t task) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "negotiation task panicked", zap.String("task", t.name), zap.Any("panic", r))
		}
	}()
	t.run(ctx)
}

// enqueue hands work to the negotiation goroutine without blocking.
func (n *Negotiator) enqueue(ctx context.Context, name string, fn func(ctx context.Context)) bool {
	select {
	case n.tasks <- task{name: name, run: fn}:
		return true
	default:
		err := appErr.New(appErr.NegotiationQueueFull)
		logger.Warn(ctx, "dropping negotiation task", zap.String("task", name), zap.Error(err))
		return false
	}
}

// HandleSignal decodes a relayed signal and schedules it. It never blocks.
func (n *Negotiator) HandleSignal(ctx context.Context, raw json.RawMessage) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warn(ctx, "invalid signal", zap.Error(appErr.Wrap(err, appErr.InvalidSignal)))
		return
	}
	logger.Info(ctx, "received signal", zap.String("type", msg.Signal.Type), zap.String("from", msg.From))

	switch msg.Signal.Type {
	case "offer":
		if msg.Signal.Offer == nil || msg.Signal.Offer.SDP == "" {
			logger.Warn(ctx, "offer without sdp")
			return
		}
		offer := *msg.Signal.Offer
		offer.Type = webrtc.SDPTypeOffer
		n.enqueue(ctx, "offer", func(ctx context.Context) { n.fire(ctx, evOffer, offer) })
	case "ice":
		cand, err := parseCandidate(msg.Signal.Candidate)
		if err != nil {
			logger.Warn(ctx, "invalid ice candidate", zap.Error(err))
			return
		}
		n.enqueue(ctx, "ice", func(ctx context.Context) { n.fire(ctx, evCandidate, cand) })
	default:
		logger.Debug(ctx, "ignoring signal", zap.String("type", msg.Signal.Type))
	}
}

// fire applies one transition and executes its effects. Negotiation goroutine only.
func (n *Negotiator) fire(ctx context.Context, ev event, arg interface{}) {
	prev := n.state
	state, effects := next(prev, ev)
	n.state = state
	n.view.Store(int32(state))
	if prev != state {
		logger.Debug(ctx, "negotiation transition", zap.Stringer("event", ev), zap.Stringer("from", prev), zap.Stringer("to", state))
	}
	n.session.SetState(ctx, state.sessionState())

	for _, fx := range effects {
		switch fx {
		case fxCloseLink:
			n.closeLink(ctx)
		case fxClearCandidates:
			n.pending = nil
		case fxBufferCandidate:
			n.bufferCandidate(ctx, arg.(webrtc.ICECandidateInit))
		case fxApplyCandidate:
			n.applyCandidate(ctx, arg.(webrtc.ICECandidateInit))
		case fxNegotiate:
			if err := n.negotiate(ctx, arg.(webrtc.SessionDescription)); err != nil {
				logger.Error(ctx, "negotiation failed", zap.Error(err))
				n.fire(ctx, evLinkDown, nil)
				return
			}
			n.fire(ctx, evAnswered, nil)
		}
	}
}

// negotiate creates a link, applies the offer, replays buffered candidates and
// sends the answer.
func (n *Negotiator) negotiate(ctx context.Context, offer webrtc.SessionDescription) error {
	link, err := n.factory()
	if err != nil {
		return err
	}
	n.gen++
	gen := n.gen
	n.link = link

	link.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		n.sendLocalCandidate(ctx, c)
	})
	link.OnDataChannel(func(dc DataChannel) {
		ch := newChannel(dc, n.cfg.FrameBuffer, func() {
			n.enqueue(ctx, "channel-open", func(ctx context.Context) {
				if n.gen == gen {
					n.fire(ctx, evChannelOpen, nil)
				}
			})
		})
		n.enqueue(ctx, "channel", func(ctx context.Context) { n.publishChannel(ctx, gen, ch) })
	})
	link.OnConnectionStateChange(func(st webrtc.PeerConnectionState) {
		logger.Info(ctx, "peer connection state", zap.String("state", st.String()))
		if st == webrtc.PeerConnectionStateFailed || st == webrtc.PeerConnectionStateClosed {
			n.enqueue(ctx, "link-down", func(ctx context.Context) {
				if n.gen == gen {
					n.fire(ctx, evLinkDown, nil)
				}
			})
		}
	})

	if err := link.SetRemoteDescription(offer); err != nil {
		return appErr.Wrapf(err, appErr.NegotiationFailed, "set remote description failed")
	}
	n.replayPending(ctx)

	answer, err := link.CreateAnswer(nil)
	if err != nil {
		return appErr.Wrapf(err, appErr.NegotiationFailed, "create answer failed")
	}
	if err := link.SetLocalDescription(answer); err != nil {
		return appErr.Wrapf(err, appErr.NegotiationFailed, "set local description failed")
	}
	local := link.LocalDescription()
	if local == nil {
		local = &answer
	}
	err = n.signaler.EmitSignal(map[string]interface{}{
		"type": "answer",
		"answer": map[string]string{
			"sdp":  local.SDP,
			"type": local.Type.String(),
		},
	})
	if err != nil {
		return appErr.Wrapf(err, appErr.NegotiationFailed, "send answer failed")
	}
	logger.Info(ctx, "answer sent")
	return nil
}

func (n *Negotiator) sendLocalCandidate(ctx context.Context, c *webrtc.ICECandidate) {
	err := n.signaler.EmitSignal(map[string]interface{}{
		"type":      "ice",
		"candidate": toLocalCandidate(c),
	})
	if err != nil {
		logger.Warn(ctx, "send local candidate failed", zap.Error(err))
	}
}

func (n *Negotiator) publishChannel(ctx context.Context, gen uint64, ch *Channel) {
	if n.gen != gen || !n.state.linked() {
		_ = ch.Close()
		return
	}
	if n.channel != nil {
		_ = n.channel.Close()
	}
	n.channel = ch
	logger.Info(ctx, "data channel established", zap.String("label", ch.Label()))
	select {
	case n.channels <- ch:
	case <-ctx.Done():
		_ = ch.Close()
	}
}

func (n *Negotiator) bufferCandidate(ctx context.Context, c webrtc.ICECandidateInit) {
	if len(n.pending) >= n.cfg.MaxPendingCandidates {
		logger.Warn(ctx, "candidate buffer full, dropping oldest", zap.Int("limit", n.cfg.MaxPendingCandidates))
		n.pending = n.pending[1:]
	}
	n.pending = append(n.pending, c)
	logger.Debug(ctx, "buffered early candidate", zap.Int("pending", len(n.pending)))
}

func (n *Negotiator) applyCandidate(ctx context.Context, c webrtc.ICECandidateInit) {
	if n.link == nil {
		n.bufferCandidate(ctx, c)
		return
	}
	if err := n.link.AddICECandidate(c); err != nil {
		logger.Warn(ctx, "add ice candidate failed", zap.Error(err), zap.String("candidate", c.Candidate))
		return
	}
	logger.Debug(ctx, "added remote candidate")
}

func (n *Negotiator) replayPending(ctx context.Context) {
	pending := n.pending
	n.pending = nil
	for _, c := range pending {
		n.applyCandidate(ctx, c)
	}
	if len(pending) > 0 {
		logger.Info(ctx, "replayed early candidates", zap.Int("count", len(pending)))
	}
}

func (n *Negotiator) closeLink(ctx context.Context) {
	if n.channel != nil {
		_ = n.channel.Close()
		n.channel = nil
	}
	if n.link == nil {
		return
	}
	link := n.link
	n.link = nil
	n.gen++
	if err := link.Close(); err != nil {
		logger.Warn(ctx, "close peer link failed", zap.Error(err))
	}
}
