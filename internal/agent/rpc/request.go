// Package rpc decodes data-channel frames into typed requests, routes them to
// the judge and the submission ledger, and encodes correlated responses.
package rpc

import (
	"encoding/json"
	"strconv"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// Kind is the closed set of request types.
type Kind string

const (
	KindLanguages   Kind = "languages"
	KindExecute     Kind = "execute"
	KindSubmit      Kind = "submit"
	KindHistory     Kind = "submission_history"
	KindCheckStatus Kind = "check_problems_status"
	KindStats       Kind = "submission_stats"
	KindRecent      Kind = "recent_submissions"
)

// Correlation keys. Browsers send _msgId; msgId is accepted as well.
const (
	corrKeyBrowser = "_msgId"
	corrKeyPlain   = "msgId"
)

// Request is one decoded frame.
type Request struct {
	Kind Kind

	raw     []byte
	fields  map[string]json.RawMessage
	corrKey string
	corrID  json.RawMessage
}

// DecodeRequest parses a frame. The correlation id, when present, is kept as
// raw JSON so it can be echoed verbatim.
func DecodeRequest(frame []byte) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidRequest, "Invalid JSON: %s", err.Error())
	}
	if fields == nil {
		return nil, appErr.BadRequest("Invalid JSON: request must be an object")
	}
	req := &Request{raw: frame, fields: fields}
	for _, key := range []string{corrKeyBrowser, corrKeyPlain} {
		if v, ok := fields[key]; ok && string(v) != "null" {
			req.corrKey = key
			req.corrID = v
			break
		}
	}
	var kind string
	if v, ok := fields["type"]; ok {
		_ = json.Unmarshal(v, &kind)
	}
	req.Kind = Kind(kind)
	return req, nil
}

// CorrelationID returns the echoed id as JSON text, or "" when absent.
func (r *Request) CorrelationID() string {
	if r == nil {
		return ""
	}
	return string(r.corrID)
}

// Bind decodes the whole frame into v.
func (r *Request) Bind(v interface{}) error {
	if err := json.Unmarshal(r.raw, v); err != nil {
		return appErr.Wrapf(err, appErr.InvalidRequest, "Invalid %s request: %s", r.Kind, err.Error())
	}
	return nil
}

// Has reports whether the field is present and not null.
func (r *Request) Has(field string) bool {
	v, ok := r.fields[field]
	return ok && string(v) != "null"
}

// Field returns the raw value of a field.
func (r *Request) Field(field string) (json.RawMessage, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// intField parses an integer field, accepting JSON numbers and numeric strings.
func (r *Request) intField(field string, def int) (int, error) {
	v, ok := r.fields[field]
	if !ok || string(v) == "null" {
		return def, nil
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		var s string
		if json.Unmarshal(v, &s) != nil {
			return 0, appErr.BadRequest(field + " must be a number")
		}
		n = json.Number(s)
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0, appErr.BadRequest(field + " must be a number")
		}
		i = int(f)
	}
	return i, nil
}
