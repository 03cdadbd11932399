package negotiator

import (
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"

	"github.com/pion/webrtc/v4"
)

// DataChannel is the subset of *webrtc.DataChannel the agent uses.
type DataChannel interface {
	Label() string
	OnOpen(f func())
	OnClose(f func())
	OnMessage(f func(msg webrtc.DataChannelMessage))
	SendText(s string) error
	Close() error
}

// PeerLink is one peer connection with the browser.
type PeerLink interface {
	OnDataChannel(f func(DataChannel))
	OnICECandidate(f func(*webrtc.ICECandidate))
	OnConnectionStateChange(f func(webrtc.PeerConnectionState))
	SetRemoteDescription(desc webrtc.SessionDescription) error
	CreateAnswer(options *webrtc.AnswerOptions) (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	LocalDescription() *webrtc.SessionDescription
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	Close() error
}

// LinkFactory creates a fresh PeerLink for every offer.
type LinkFactory func() (PeerLink, error)

// pionLink adapts *webrtc.PeerConnection to PeerLink.
type pionLink struct {
	*webrtc.PeerConnection
}

func (l pionLink) OnDataChannel(f func(DataChannel)) {
	l.PeerConnection.OnDataChannel(func(dc *webrtc.DataChannel) { f(dc) })
}

// NewPionFactory returns a factory for real peer connections using the given
// STUN/TURN urls.
func NewPionFactory(iceServers []string) LinkFactory {
	cfg := webrtc.Configuration{}
	if len(iceServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: append([]string(nil), iceServers...)}}
	}
	return func() (PeerLink, error) {
		pc, err := webrtc.NewPeerConnection(cfg)
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.NegotiationFailed, "create peer connection failed")
		}
		return pionLink{PeerConnection: pc}, nil
	}
}
