package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/lifequest/pkg/httpcontext"
	completionUC "github.com/fastygo/lifequest/usecase/completion"
)

type CompletionHandler struct {
	baseHandler
	uc *completionUC.UseCase
}

func NewCompletionHandler(uc *completionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *CompletionHandler {
	return &CompletionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Complete a task and award its points
// @Tags tasks
// @Failure 404 {object} transport.Envelope
// @Failure 409 {object} transport.Envelope
// @Router /api/v1/tasks/{id}/complete [post]
func (h *CompletionHandler) Complete(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	result, err := h.uc.Complete(stdCtx, taskID(ctx), userID)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, result)
}
