package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/application/services"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

// TransferHandler handles HTTP requests for transfer history
type TransferHandler struct {
	service *services.TransferService
	logger  *zap.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(service *services.TransferService, logger *zap.Logger) *TransferHandler {
	return &TransferHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the transfer routes
func (h *TransferHandler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{address}/transfers", h.GetTransfers)
}

// GetTransfers handles GET /accounts/{address}/transfers
func (h *TransferHandler) GetTransfers(w http.ResponseWriter, r *http.Request) {
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

	filter := entities.DefaultTransferFilter()

	// Parse query parameters
	if v := r.URL.Query().Get("token"); v != "" {
		if !isValidAddress(v) {
			respondError(w, http.StatusBadRequest, "Invalid token address format")
			return
		}
		filter.TokenAddress = v
	}
	for _, window := range []struct {
		param string
		dest  *int64
	}{{"start_time", &filter.StartTime}, {"end_time", &filter.EndTime}} {
		if v := r.URL.Query().Get(window.param); v != "" {
			ts, err := services.ParseTimestamp(v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "Invalid "+window.param)
				return
			}
			*window.dest = ts
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if page, err := strconv.Atoi(v); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if v := r.URL.Query().Get("size"); v != "" {
		if size, err := strconv.Atoi(v); err == nil && size > 0 && size <= 1000 {
			filter.Size = size
		}
	}

	response, err := h.service.GetTransfers(r.Context(), chainID, address, filter)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get transfers")
		return
	}

	respondJSON(w, http.StatusOK, response)
}
