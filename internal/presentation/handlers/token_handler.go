package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/application/services"
	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

// TokenHandler handles HTTP requests for token metadata and prices
type TokenHandler struct {
	tokens *services.TokenService
	prices *services.PriceService
	logger *zap.Logger
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(tokens *services.TokenService, prices *services.PriceService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		tokens: tokens,
		prices: prices,
		logger: logger,
	}
}

// RegisterRoutes registers the token routes
func (h *TokenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tokens/{address}", h.GetByAddress)
	r.Get("/tokens/{address}/price", h.GetPrice)
}

// TokenPriceResponse is the API response for a token price
type TokenPriceResponse struct {
	ChainID  int64   `json:"chainId"`
	Address  string  `json:"address"`
	Symbol   string  `json:"symbol"`
	PriceUSD float64 `json:"priceUsd"`
	IsStable bool    `json:"isStable"`
}

// GetByAddress handles GET /api/v1/tokens/{address}
func (h *TokenHandler) GetByAddress(w http.ResponseWriter, r *http.Request) {
	token, ok := h.resolve(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, token)
}

// GetPrice handles GET /api/v1/tokens/{address}/price
func (h *TokenHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	token, ok := h.resolve(w, r)
	if !ok {
		return
	}

	stable := token.Role == entities.RoleStable
	price := 1.0
	if !stable {
		var err error
		price, err = h.prices.GetUSDPrice(r.Context(), services.PriceQuery{
			ChainID:   token.ChainID,
			Address:   token.Address,
			SkipCache: boolParam(r, "refresh", false),
		})
		if err != nil {
			respondServiceError(w, h.logger, err, "Failed to get token price")
			return
		}
	}

	respondJSON(w, http.StatusOK, TokenPriceResponse{
		ChainID:  token.ChainID,
		Address:  token.Address,
		Symbol:   token.Symbol,
		PriceUSD: price,
		IsStable: stable,
	})
}

func (h *TokenHandler) resolve(w http.ResponseWriter, r *http.Request) (entities.Token, bool) {
	address := chi.URLParam(r, "address")
	if !isValidAddress(address) {
		respondError(w, http.StatusBadRequest, "Invalid token address format")
		return entities.Token{}, false
	}

	chainID, ok := chainIDParam(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid chain_id")
		return entities.Token{}, false
	}

	token, err := h.tokens.Resolve(r.Context(), chainID, entities.TokenCandidate{Address: address})
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to get token")
		return entities.Token{}, false
	}
	return token, true
}
