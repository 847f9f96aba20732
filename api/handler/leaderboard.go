package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/pkg/httpcontext"
	leaderboardUC "github.com/fastygo/lifequest/usecase/leaderboard"
)

type LeaderboardHandler struct {
	baseHandler
	uc *leaderboardUC.UseCase
}

func NewLeaderboardHandler(uc *leaderboardUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Ranked users by points earned in a trailing window
// @Tags leaderboard
// @Param window query string false "7, 30 or all"
// @Router /api/v1/leaderboard [get]
func (h *LeaderboardHandler) Get(ctx *fasthttp.RequestCtx) {
	if h.userID(ctx) == "" {
		return
	}

	window, err := domain.ParseWindow(string(ctx.QueryArgs().Peek("window")))
	if err != nil {
		h.invalid(ctx, err.Error())
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	entries, err := h.uc.Leaderboard(stdCtx, window)
	if err != nil {
		h.respondError(stdCtx, ctx, err)
		return
	}
	h.respondSuccessWithMeta(ctx, http.StatusOK, entries, map[string]interface{}{"window": window})
}
