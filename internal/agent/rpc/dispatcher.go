package rpc

import (
	"context"
	"runtime/debug"

	"github.com/Diwakar-Gupta/pepper/internal/judge/model"
	"github.com/Diwakar-Gupta/pepper/internal/judge/service"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/contextkey"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"go.uber.org/zap"
)

// Judge runs code.
type Judge interface {
	Execute(ctx context.Context, req service.ExecuteRequest) (model.ExecuteResult, error)
	Submit(ctx context.Context, req service.SubmitRequest) (model.SubmitResult, error)
}

// LanguageProber reports installed toolchain versions.
type LanguageProber interface {
	DetectVersions(ctx context.Context) map[string]*string
}

// Ledger is the read side of the submission store.
type Ledger interface {
	History(ctx context.Context, problemSlug string, includeCode bool) ([]model.Submission, error)
	CheckStatus(ctx context.Context, problemSlugs []string) (map[string]model.SubmissionStatus, error)
	Stats(ctx context.Context) (model.Stats, error)
	Recent(ctx context.Context, limit int) ([]model.RecentSubmission, error)
}

// Dispatcher turns one request frame into exactly one response frame.
type Dispatcher struct {
	judge     Judge
	languages LanguageProber
	ledger    Ledger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(judge Judge, languages LanguageProber, ledger Ledger) (*Dispatcher, error) {
	if judge == nil {
		return nil, appErr.ValidationError("judge", "required")
	}
	if languages == nil {
		return nil, appErr.ValidationError("languages", "required")
	}
	if ledger == nil {
		return nil, appErr.ValidationError("ledger", "required")
	}
	return &Dispatcher{judge: judge, languages: languages, ledger: ledger}, nil
}

// Handle decodes frame, runs the request and returns the response frame.
// Every failure, including a panic in a handler, becomes an {"error": ...} body.
func (d *Dispatcher) Handle(ctx context.Context, frame []byte) []byte {
	req, err := DecodeRequest(frame)
	if err != nil {
		logger.Warn(ctx, "undecodable request", zap.Error(err))
		return mustEncode(ctx, nil, errorBody(err))
	}
	if id := req.CorrelationID(); id != "" {
		ctx = context.WithValue(ctx, contextkey.MsgID, id)
	}
	logger.Info(ctx, "handling request", zap.String("type", string(req.Kind)))

	body, err := d.dispatch(ctx, req)
	if err != nil {
		logger.Warn(ctx, "request failed", zap.String("type", string(req.Kind)), zap.Error(err))
		return mustEncode(ctx, req, errorBody(err))
	}
	return mustEncode(ctx, req, body)
}

// LanguagesFrame is the unsolicited capabilities push sent when a channel opens.
func (d *Dispatcher) LanguagesFrame(ctx context.Context) []byte {
	return mustEncode(ctx, nil, languagesResponse{Languages: d.languages.DetectVersions(ctx)})
}

func (d *Dispatcher) dispatch(ctx context.Context, req *Request) (body interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "request handler panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			body, err = panicBody(r), nil
		}
	}()

	switch req.Kind {
	case KindLanguages:
		return d.handleLanguages(ctx, req)
	case KindExecute:
		return d.handleExecute(ctx, req)
	case KindSubmit:
		return d.handleSubmit(ctx, req)
	case KindHistory:
		return d.handleHistory(ctx, req)
	case KindCheckStatus:
		return d.handleCheckStatus(ctx, req)
	case KindStats:
		return d.handleStats(ctx, req)
	case KindRecent:
		return d.handleRecent(ctx, req)
	default:
		return nil, appErr.New(appErr.UnknownMessageType)
	}
}

func mustEncode(ctx context.Context, req *Request, body interface{}) []byte {
	data, err := encode(req, body)
	if err == nil {
		return data
	}
	logger.Error(ctx, "encode response failed", zap.Error(err))
	data, err = encode(req, ErrorResponse{Error: "failed to encode response"})
	if err != nil {
		return []byte(`{"error":"failed to encode response"}`)
	}
	return data
}
