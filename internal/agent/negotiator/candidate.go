package negotiator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"

	"github.com/pion/webrtc/v4"
)

// remoteCandidate accepts both the browser RTCIceCandidateInit shape and the
// component shape (foundation, address, port...).
type remoteCandidate struct {
	Candidate        *string `json:"candidate"`
	SDPMid           *string `json:"sdpMid"`
	SDPMLineIndex    *uint16 `json:"sdpMLineIndex"`
	UsernameFragment *string `json:"usernameFragment"`

	Foundation string          `json:"foundation"`
	Component  json.RawMessage `json:"component"`
	Protocol   string          `json:"protocol"`
	Priority   uint32          `json:"priority"`
	Address    string          `json:"address"`
	Port       uint16          `json:"port"`
	Type       string          `json:"type"`
}

// parseComponent accepts a numeric component id or the RTCIceComponent names
// "rtp" and "rtcp". Absent means 0.
func parseComponent(raw json.RawMessage) (uint16, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var n uint16
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return 0, appErr.Wrapf(err, appErr.InvalidSignal, "decode candidate component failed")
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "rtp":
		return 1, nil
	case "rtcp":
		return 2, nil
	}
	v, err := strconv.ParseUint(name, 10, 16)
	if err != nil {
		return 0, appErr.New(appErr.InvalidSignal).WithMessage("unknown candidate component " + strconv.Quote(name))
	}
	return uint16(v), nil
}

// parseCandidate converts an inbound candidate payload into an ICECandidateInit.
func parseCandidate(raw json.RawMessage) (webrtc.ICECandidateInit, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return webrtc.ICECandidateInit{}, appErr.New(appErr.InvalidSignal).WithMessage("candidate is missing")
	}
	var rc remoteCandidate
	if err := json.Unmarshal(raw, &rc); err != nil {
		return webrtc.ICECandidateInit{}, appErr.Wrapf(err, appErr.InvalidSignal, "decode candidate failed")
	}

	init := webrtc.ICECandidateInit{
		SDPMid:           rc.SDPMid,
		SDPMLineIndex:    rc.SDPMLineIndex,
		UsernameFragment: rc.UsernameFragment,
	}
	switch {
	case rc.Candidate != nil:
		init.Candidate = *rc.Candidate
	case rc.Address != "" && rc.Port != 0 && rc.Type != "":
		component, err := parseComponent(rc.Component)
		if err != nil {
			return webrtc.ICECandidateInit{}, err
		}
		init.Candidate = candidateLine(rc.Foundation, component, rc.Protocol, rc.Priority, rc.Address, rc.Port, rc.Type)
	default:
		return webrtc.ICECandidateInit{}, appErr.New(appErr.InvalidSignal).WithMessage("candidate has neither a candidate line nor an address")
	}
	if init.SDPMid == nil && init.SDPMLineIndex == nil {
		zero := uint16(0)
		init.SDPMLineIndex = &zero
	}
	return init, nil
}

// candidateLine renders the SDP a=candidate value for the component form.
func candidateLine(foundation string, component uint16, protocol string, priority uint32, address string, port uint16, typ string) string {
	if foundation == "" {
		foundation = "0"
	}
	if component == 0 {
		component = 1
	}
	if protocol == "" {
		protocol = "udp"
	}
	return fmt.Sprintf("candidate:%s %d %s %d %s %d typ %s",
		foundation, component, strings.ToLower(protocol), priority, address, port, typ)
}

// localCandidate is the outbound form of a locally gathered candidate.
type localCandidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`

	Foundation string `json:"foundation"`
	Component  uint16 `json:"component"`
	Protocol   string `json:"protocol"`
	Priority   uint32 `json:"priority"`
	Address    string `json:"address"`
	Port       uint16 `json:"port"`
	Type       string `json:"type"`
}

func toLocalCandidate(c *webrtc.ICECandidate) localCandidate {
	init := c.ToJSON()
	out := localCandidate{
		Candidate:     init.Candidate,
		SDPMid:        init.SDPMid,
		SDPMLineIndex: init.SDPMLineIndex,
		Foundation:    c.Foundation,
		Component:     c.Component,
		Protocol:      c.Protocol.String(),
		Priority:      c.Priority,
		Address:       c.Address,
		Port:          c.Port,
		Type:          c.Typ.String(),
	}
	if out.Candidate == "" || out.Candidate == "candidate:" {
		out.Candidate = candidateLine(c.Foundation, c.Component, out.Protocol, c.Priority, c.Address, c.Port, out.Type)
	}
	return out
}
