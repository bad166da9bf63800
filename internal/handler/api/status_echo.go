package api

import (
	"github.com/labstack/echo/v4"

	"FlatPull/internal/domain/models"
	"FlatPull/internal/usecase"
	xhttp "FlatPull/pkg/http"
	xlogger "FlatPull/pkg/logger"
)

// StatusEchoHandler exposes the progress of the current run.
type StatusEchoHandler struct {
	logger *xlogger.Logger
	board  *usecase.ProgressBoard
}

func NewStatusEchoHandler(logger *xlogger.Logger, board *usecase.ProgressBoard) *StatusEchoHandler {
	return &StatusEchoHandler{logger: logger, board: board}
}

func (h *StatusEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/status/:asset", h.AssetStatus)
}

func (h *StatusEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *StatusEchoHandler) Status(c echo.Context) error {
	runs := h.board.Snapshot()
	out := make([]models.RunStatus, 0, len(runs))
	for _, r := range runs {
		out = append(out, models.NewRunStatus(r))
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *StatusEchoHandler) AssetStatus(c echo.Context) error {
	req := &models.StatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	asset, err := models.ParseAssetType(req.Asset)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	run, ok := h.board.Get(asset)
	if !ok {
		h.logger.Debug("status requested for idle asset", xlogger.String("asset", req.Asset))
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no run for %s yet", req.Asset))
	}
	return xhttp.SuccessResponse(c, models.NewRunStatus(run))
}
