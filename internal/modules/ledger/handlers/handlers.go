// Package handlers provides HTTP handlers for ledger operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/ledger"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// defaultTradeLimit caps GET /trades when no limit is given
const defaultTradeLimit = 100

// Handler handles ledger HTTP requests
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// TradeRequest is the body of POST /trades. Derived fields are computed
// by the ledger; realized_pnl and plan_executed override the derivation
// when supplied.
type TradeRequest struct {
	Symbol       string                `json:"symbol"`
	Name         string                `json:"name"`
	Market       string                `json:"market"`
	Side         string                `json:"side"`
	TradeDate    string                `json:"trade_date"`
	TradeTime    string                `json:"trade_time"`
	Price        float64               `json:"price"`
	Quantity     float64               `json:"quantity"`
	Amount       float64               `json:"amount"`
	Commission   float64               `json:"commission"`
	Tax          float64               `json:"tax"`
	StopLoss     *float64              `json:"stop_loss"`
	TakeProfit   *float64              `json:"take_profit"`
	Strategy     string                `json:"strategy"`
	Emotion      string                `json:"emotion"`
	Notes        string                `json:"notes"`
	RealizedPnL  *float64              `json:"realized_pnl"`
	PlanExecuted *domain.PlanExecution `json:"plan_executed"`
}

// Entry converts the request into an unsaved trade entry
func (req TradeRequest) Entry() domain.TradeEntry {
	return domain.TradeEntry{
		Symbol:       req.Symbol,
		Name:         req.Name,
		Market:       domain.Market(req.Market),
		Side:         domain.Side(req.Side),
		TradeDate:    req.TradeDate,
		TradeTime:    req.TradeTime,
		Price:        req.Price,
		Quantity:     req.Quantity,
		Amount:       req.Amount,
		Commission:   req.Commission,
		Tax:          req.Tax,
		StopLoss:     req.StopLoss,
		TakeProfit:   req.TakeProfit,
		Strategy:     req.Strategy,
		Emotion:      req.Emotion,
		Notes:        req.Notes,
		RealizedPnL:  req.RealizedPnL,
		PlanExecuted: req.PlanExecuted,
	}
}

// AnnotationRequest is the body of PATCH /trades/{id}
type AnnotationRequest struct {
	Strategy string `json:"strategy"`
	Emotion  string `json:"emotion"`
	Notes    string `json:"notes"`
}

// HandleRecordTrade handles POST /api/trades
func (h *Handler) HandleRecordTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.service.RecordTrade(req.Entry())
	if err != nil {
		h.writeError(w, err, "Failed to record trade")
		return
	}

	h.writeJSON(w, http.StatusCreated, envelope(trade))
}

// HandleGetTrades handles GET /api/trades
func (h *Handler) HandleGetTrades(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if filter.Limit == 0 {
		filter.Limit = defaultTradeLimit
	}

	trades, err := h.service.ListTrades(filter)
	if err != nil {
		h.writeError(w, err, "Failed to list trades")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"trades": trades,
		"count":  len(trades),
	}))
}

// HandleGetTradesSummary handles GET /api/trades/summary
func (h *Handler) HandleGetTradesSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	filter.Limit = 0
	filter.Newest = false

	summary, err := h.service.Summary(filter)
	if err != nil {
		h.writeError(w, err, "Failed to summarize trades")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(summary))
}

// HandleGetTrade handles GET /api/trades/{id}
func (h *Handler) HandleGetTrade(w http.ResponseWriter, r *http.Request) {
	trade, err := h.service.GetTrade(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "Failed to get trade")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(trade))
}

// HandleAnnotateTrade handles PATCH /api/trades/{id}
func (h *Handler) HandleAnnotateTrade(w http.ResponseWriter, r *http.Request) {
	var req AnnotationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	trade, err := h.service.Annotate(chi.URLParam(r, "id"), req.Strategy, req.Emotion, req.Notes)
	if err != nil {
		h.writeError(w, err, "Failed to update trade")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(trade))
}

// HandleDeleteTrade handles DELETE /api/trades/{id}
func (h *Handler) HandleDeleteTrade(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTrade(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "Failed to delete trade")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetPositions handles GET /api/positions?all=true
func (h *Handler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	openOnly := r.URL.Query().Get("all") != "true"

	positions, err := h.service.ListPositions(openOnly)
	if err != nil {
		h.writeError(w, err, "Failed to list positions")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	}))
}

// HandleGetPosition handles GET /api/positions/{symbol}?market=
func (h *Handler) HandleGetPosition(w http.ResponseWriter, r *http.Request) {
	var market domain.Market
	if m := r.URL.Query().Get("market"); m != "" {
		parsed, err := domain.ParseMarket(m)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		market = parsed
	}

	position, err := h.service.GetPosition(chi.URLParam(r, "symbol"), market)
	if err != nil {
		h.writeError(w, err, "Failed to get position")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(position))
}

func parseFilter(r *http.Request) (domain.TradeFilter, error) {
	q := r.URL.Query()
	filter := domain.TradeFilter{
		Symbol:   strings.TrimSpace(q.Get("symbol")),
		From:     q.Get("from"),
		To:       q.Get("to"),
		Realized: q.Get("realized") == "true",
		Newest:   q.Get("order") == "newest",
	}

	if m := q.Get("market"); m != "" {
		market, err := domain.ParseMarket(m)
		if err != nil {
			return filter, err
		}
		filter.Market = market
	}
	if s := q.Get("side"); s != "" {
		side, err := domain.ParseSide(s)
		if err != nil {
			return filter, err
		}
		filter.Side = side
	}
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := domain.ParseDate(d); err != nil {
			return filter, errors.New("dates must be YYYY-MM-DD")
		}
	}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case domain.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Error().Err(err).Msg(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
