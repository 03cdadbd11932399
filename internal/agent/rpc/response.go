package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error        string `json:"error"`
	SubmissionID string `json:"submissionId,omitempty"`
}

func errorBody(err error) ErrorResponse {
	body := ErrorResponse{Error: err.Error()}
	if v, ok := appErr.Detail(err, "submissionId"); ok {
		if id, ok := v.(string); ok {
			body.SubmissionID = id
		}
	}
	return body
}

func panicBody(r interface{}) ErrorResponse {
	if err, ok := r.(error); ok {
		return ErrorResponse{Error: err.Error()}
	}
	return ErrorResponse{Error: fmt.Sprint(r)}
}

// encode marshals body, which must encode as a JSON object, and echoes the
// request's correlation id under the key it arrived with.
func encode(req *Request, body interface{}) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	if req == nil || req.corrKey == "" {
		return data, nil
	}
	data = bytes.TrimSpace(data)
	if len(data) < 2 || data[0] != '{' {
		return nil, fmt.Errorf("response is not a JSON object")
	}
	key, _ := json.Marshal(req.corrKey)

	var buf bytes.Buffer
	buf.Grow(len(data) + len(key) + len(req.corrID) + 2)
	buf.WriteByte('{')
	buf.Write(key)
	buf.WriteByte(':')
	buf.Write(req.corrID)
	if rest := bytes.TrimSpace(data[1:]); len(rest) > 0 && rest[0] != '}' {
		buf.WriteByte(',')
	}
	buf.Write(data[1:])
	return buf.Bytes(), nil
}
