package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/pkg/httpcontext"
	analyticsUC "github.com/fastygo/lifequest/usecase/analytics"
)

type AnalyticsHandler struct {
	baseHandler
	uc *analyticsUC.UseCase
}

func NewAnalyticsHandler(uc *analyticsUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Analytics overview of the caller's tasks
// @Tags analytics
// @Param period query string false "week, month or year"
// @Router /api/v1/analytics/overview [get]
func (h *AnalyticsHandler) Overview(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	period, err := domain.ParsePeriod(string(ctx.QueryArgs().Peek("period")))
	if err != nil {
		h.invalid(ctx, err.Error())
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	overview, err := h.uc.Overview(stdCtx, userID, period)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, overview)
}
