package negotiator

import "github.com/Diwakar-Gupta/pepper/internal/agent/session"

// State is the negotiation state of the current peer link.
type State int32

const (
	StateNoLink State = iota
	StateOfferReceived
	StateAnswerSent
	StateChannelOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNoLink:
		return "no_link"
	case StateOfferReceived:
		return "offer_received"
	case StateAnswerSent:
		return "answer_sent"
	case StateChannelOpen:
		return "channel_open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

func (s State) linked() bool {
	return s == StateOfferReceived || s == StateAnswerSent || s == StateChannelOpen
}

func (s State) sessionState() session.State {
	switch s {
	case StateOfferReceived, StateAnswerSent:
		return session.AwaitingAnswer
	case StateChannelOpen:
		return session.Connected
	case StateClosed:
		return session.Closed
	}
	return session.Idle
}

type event int

const (
	evOffer event = iota
	evCandidate
	evAnswered
	evChannelOpen
	evLinkDown
	evShutdown
)

func (e event) String() string {
	return [...]string{"offer", "candidate", "answered", "channel_open", "link_down", "shutdown"}[e]
}

type effect int

const (
	fxCloseLink effect = iota
	fxNegotiate
	fxApplyCandidate
	fxBufferCandidate
	fxClearCandidates
)

// next is the transition table. It has no side effects; the negotiator runs
// the returned effects in order.
func next(s State, ev event) (State, []effect) {
	if s == StateClosed {
		return s, nil
	}
	switch ev {
	case evOffer:
		if s.linked() {
			return StateOfferReceived, []effect{fxCloseLink, fxNegotiate}
		}
		return StateOfferReceived, []effect{fxNegotiate}
	case evCandidate:
		if s.linked() {
			return s, []effect{fxApplyCandidate}
		}
		return s, []effect{fxBufferCandidate}
	case evAnswered:
		if s == StateOfferReceived {
			return StateAnswerSent, nil
		}
	case evChannelOpen:
		if s == StateOfferReceived || s == StateAnswerSent {
			return StateChannelOpen, nil
		}
	case evLinkDown:
		if s.linked() {
			return StateNoLink, []effect{fxCloseLink, fxClearCandidates}
		}
	case evShutdown:
		return StateClosed, []effect{fxCloseLink, fxClearCandidates}
	}
	return s, nil
}
