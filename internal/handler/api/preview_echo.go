package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"ETFWatch/internal/domain/models"
	"ETFWatch/internal/services/analysis"
	"ETFWatch/internal/services/compose"
	"ETFWatch/internal/services/rotation"
	xhttp "ETFWatch/pkg/http"
	xlogger "ETFWatch/pkg/logger"
	"ETFWatch/pkg/util"
)

// PreviewConfig carries the configured defaults a request may override.
type PreviewConfig struct {
	PriceThreshold decimal.Decimal
	PEThreshold    decimal.Decimal
	PEWatchlist    []models.Instrument
	Groups         int
	Location       *time.Location
}

// PreviewHandler serves dry-run rendering and rotation lookups. Nothing here sends notifications.
type PreviewHandler struct {
	logger *xlogger.Logger
	cfg    PreviewConfig
	now    func() time.Time
}

func NewPreviewHandler(logger *xlogger.Logger, cfg PreviewConfig) *PreviewHandler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &PreviewHandler{logger: logger, cfg: cfg, now: time.Now}
}

func (h *PreviewHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/rotation", h.Rotation)
	g.POST("/price/preview", h.PricePreview)
	g.POST("/pe/preview", h.PEPreview)
}

func (h *PreviewHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PreviewHandler) Rotation(c echo.Context) error {
	req := &models.RotationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	day := h.day(req.Date)

	groups := rotation.Cycle(h.cfg.PEWatchlist, h.cfg.Groups, day)
	uncovered := rotation.Uncovered(h.cfg.PEWatchlist, groups)
	res := models.RotationResponse{
		RotationDay: rotationDay(day, groups[0]),
		Cycle:       make([]models.RotationDay, 0, len(groups)),
		Complete:    len(uncovered) == 0,
		Uncovered:   uncovered,
	}
	for i, g := range groups {
		res.Cycle = append(res.Cycle, rotationDay(day.AddDate(0, 0, i), g))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PreviewHandler) PricePreview(c echo.Context) error {
	req := &models.PricePreviewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	threshold := h.cfg.PriceThreshold
	if req.ThresholdPct != nil {
		threshold = decimal.NewFromFloat(*req.ThresholdPct)
	}

	rep := analysis.AnalyzeMoves(req.PriceSnapshot(), threshold)
	n := compose.Price(rep, h.day(req.Date))
	h.logger.Debug("price preview rendered",
		xlogger.Int("quotes", len(req.Quotes)),
		xlogger.Int("movers", len(rep.Movers)),
	)

	return xhttp.SuccessResponse(c, models.PricePreviewResponse{
		Threshold:    rep.Threshold,
		WouldSend:    rep.HasAlert,
		All:          models.NewMoveViews(rep.All),
		Movers:       models.NewMoveViews(rep.Movers),
		Notification: n,
	})
}

func (h *PreviewHandler) PEPreview(c echo.Context) error {
	req := &models.PEPreviewRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	threshold := h.cfg.PEThreshold
	if req.Threshold != nil {
		threshold = decimal.NewFromFloat(*req.Threshold)
	}

	rep := analysis.AnalyzeValuations(req.PESnapshot(), threshold)
	n := compose.Valuation(rep, h.day(req.Date))
	h.logger.Debug("pe preview rendered", xlogger.Int("quotes", len(req.Quotes)))

	return xhttp.SuccessResponse(c, models.PEPreviewResponse{
		Threshold:    rep.Threshold,
		WouldSend:    rep.HasAlert,
		Above:        models.NewPEViews(rep.Above),
		Below:        models.NewPEViews(rep.Below),
		All:          models.NewPEViews(rep.All),
		Skipped:      rep.Skipped,
		Notification: n,
	})
}

// day resolves an optional YYYY-MM-DD in the configured zone, defaulting to today there.
// The request was validated, so a parse failure cannot happen here.
func (h *PreviewHandler) day(s string) time.Time {
	return util.ParseDateDefault(s, h.cfg.Location, h.now().In(h.cfg.Location))
}

func rotationDay(day time.Time, g rotation.Group) models.RotationDay {
	return models.RotationDay{
		Date:    day.Format(util.DateLayout),
		Group:   g.Descriptor(),
		Index:   g.Index,
		Count:   g.Count,
		Tickers: g.Tickers(),
	}
}
