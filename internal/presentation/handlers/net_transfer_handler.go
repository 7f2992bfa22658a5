package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/application/services"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

const maxBatchBodyBytes = 1 << 20

// NetTransferHandler handles HTTP requests for net-transfer computations
type NetTransferHandler struct {
	service *services.NetTransferService
	logger  *zap.Logger
}

// NewNetTransferHandler creates a new net-transfer handler
func NewNetTransferHandler(service *services.NetTransferService, logger *zap.Logger) *NetTransferHandler {
	return &NetTransferHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the net-transfer routes
func (h *NetTransferHandler) RegisterRoutes(r chi.Router) {
	r.Get("/accounts/{address}/net-transfer", h.GetNetTransfer)
	r.Post("/net-transfers", h.PostNetTransfers)
}

// TokenInput is a token override in a batch request
type TokenInput struct {
	Symbol   string   `json:"symbol"`
	Address  string   `json:"address"`
	Decimals *int     `json:"decimals,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

// NetTransferBatchRequest is the body of POST /net-transfers. Times are Unix
// seconds or milliseconds.
type NetTransferBatchRequest struct {
	ChainID          int64        `json:"chainId"`
	Accounts         []string     `json:"accounts"`
	StartTime        int64        `json:"startTime"`
	EndTime          int64        `json:"endTime"`
	Tokens           []TokenInput `json:"tokens,omitempty"`
	StableSymbols    []string     `json:"stableSymbols,omitempty"`
	StableAddresses  []string     `json:"stableAddresses,omitempty"`
	ExcludeAddresses []string     `json:"excludeAddresses,omitempty"`
	IncludeBreakdown bool         `json:"includeBreakdown"`
	MaxBlockSpan     uint64       `json:"maxBlockSpan,omitempty"`
}

// GetNetTransfer handles GET /accounts/{address}/net-transfer
func (h *NetTransferHandler) GetNetTransfer(w http.ResponseWriter, r *http.Request) {
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

	q := r.URL.Query()
	start, err := services.ParseTimestamp(q.Get("start_time"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid start_time")
		return
	}
	end, err := services.ParseTimestamp(q.Get("end_time"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid end_time")
		return
	}

	req := services.NetTransferRequest{
		ChainID:          chainID,
		Accounts:         []string{address},
		StartTime:        start,
		EndTime:          end,
		ExcludeAddresses: listParam(r, "exclude"),
		IncludeBreakdown: boolParam(r, "breakdown", false),
		StableOverrides: entities.StableOverrides{
			Symbols:   listParam(r, "stable_symbols"),
			Addresses: listParam(r, "stable_addresses"),
		},
	}
	for _, token := range listParam(r, "tokens") {
		if !isValidAddress(token) {
			respondError(w, http.StatusBadRequest, "Invalid token address format")
			return
		}
		req.Tokens = append(req.Tokens, entities.TokenCandidate{Address: token})
	}
	if v := q.Get("max_block_span"); v != "" {
		span, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid max_block_span")
			return
		}
		req.MaxBlockSpan = span
	}

	result, err := h.service.GetNetTransfer(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to compute net transfer")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// PostNetTransfers handles POST /net-transfers
func (h *NetTransferHandler) PostNetTransfers(w http.ResponseWriter, r *http.Request) {
	var body NetTransferBatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBatchBodyBytes)).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.ChainID == 0 {
		body.ChainID = defaultChainID
	}

	req := services.NetTransferRequest{
		ChainID:          body.ChainID,
		Accounts:         body.Accounts,
		StartTime:        body.StartTime,
		EndTime:          body.EndTime,
		ExcludeAddresses: body.ExcludeAddresses,
		IncludeBreakdown: body.IncludeBreakdown,
		MaxBlockSpan:     body.MaxBlockSpan,
		StableOverrides: entities.StableOverrides{
			Symbols:   body.StableSymbols,
			Addresses: body.StableAddresses,
		},
	}
	for _, t := range body.Tokens {
		req.Tokens = append(req.Tokens, entities.TokenCandidate{
			Symbol:   t.Symbol,
			Address:  t.Address,
			Decimals: t.Decimals,
			Price:    t.Price,
		})
	}

	result, err := h.service.GetNetTransfers(r.Context(), req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to compute net transfers")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
