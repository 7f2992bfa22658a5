package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/application/services"
)

// BalanceHandler handles HTTP requests for unified and per-protocol balances
type BalanceHandler struct {
	service *services.BalanceService
	logger  *zap.Logger
}

// NewBalanceHandler creates a new balance handler
func NewBalanceHandler(service *services.BalanceService, logger *zap.Logger) *BalanceHandler {
	return &BalanceHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the balance routes
func (h *BalanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{address}/balances", h.GetSummary)
	r.Get("/accounts/{address}/protocols/{protocol}/balance", h.GetProtocolBalance)
}

// GetSummary handles GET /accounts/{address}/balances
func (h *BalanceHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	chainID, ok := chainIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid chain_id")
		return
	}

	summary, err := h.service.GetUnifiedBalanceSummary(r.Context(), services.SummaryRequest{
		ChainID:      chainID,
		Account:      address,
		Protocols:    listParam(r, "protocols"),
		IncludeItems: boolParam(r, "include_items", false),
	})
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get balance summary")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// GetProtocolBalance handles GET /accounts/{address}/protocols/{protocol}/balance
func (h *BalanceHandler) GetProtocolBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid address format")
		return
	}

	chainID, ok := chainIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid chain_id")
		return
	}

	balance, err := h.service.GetProtocolBalance(r.Context(), chainID, chi.URLParam(r, "protocol"), address)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get protocol balance")
		return
	}

	respondJSON(w, http.StatusOK, balance)
}
