package frontdoor

import (
	"context"
	"io"
	"net/http"

	"github.com/Diwakar-Gupta/pepper/internal/agent/session"
	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const maxFrameBytes = 8 << 20

// FrameHandler answers one RPC frame.
type FrameHandler interface {
	Handle(ctx context.Context, frame []byte) []byte
}

// Backuper dumps the submission ledger.
type Backuper interface {
	Backup(ctx context.Context, w io.Writer) error
}

// Controller serves the debugging endpoints.
type Controller struct {
	session *session.Session
	rpc     FrameHandler
	backup  Backuper
}

// NewController creates a new controller. backup may be nil.
func NewController(sess *session.Session, rpc FrameHandler, backup Backuper) *Controller {
	return &Controller{session: sess, rpc: rpc, backup: backup}
}

type sessionView struct {
	Code    string `json:"code"`
	Display string `json:"display"`
	State   string `json:"state"`
}

// Health reports liveness.
func (h *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Session returns the pairing code and connection state.
func (h *Controller) Session(c *gin.Context) {
	response.Success(c, sessionView{
		Code:    h.session.Code(),
		Display: h.session.Display(),
		State:   h.session.State().String(),
	})
}

// RPC feeds the request body to the dispatcher and returns its frame untouched.
func (h *Controller) RPC(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFrameBytes+1))
	if err != nil {
		response.Error(c, appErr.Wrapf(err, appErr.InvalidRequest, "read body failed"))
		return
	}
	if len(body) > maxFrameBytes {
		response.BadRequest(c, "Request frame too large")
		return
	}
	response.Raw(c, h.rpc.Handle(c.Request.Context(), body))
}

// Backup streams every stored submission as JSON.
func (h *Controller) Backup(c *gin.Context) {
	if h.backup == nil {
		response.Error(c, appErr.New(appErr.ServiceUnavailable).WithMessage("submission store is not configured"))
		return
	}
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="submissions_backup.json"`)
	c.Status(http.StatusOK)
	if err := h.backup.Backup(c.Request.Context(), c.Writer); err != nil {
		_ = c.Error(err)
	}
}
