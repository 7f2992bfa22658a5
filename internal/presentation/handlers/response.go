package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bimakw/holdings-reconciler/internal/domain/entities"
)

const defaultChainID int64 = 1

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors to a status. Server errors are
// logged and answered with fallback instead of the error text.
func respondServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback, zap.Error(err))
		respondError(w, status, fallback)
		return
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entities.ErrInvalidInput), errors.Is(err, entities.ErrRangeInverted):
		return http.StatusBadRequest
	case errors.Is(err, entities.ErrUnsupportedProtocol), errors.Is(err, entities.ErrUnsupportedChain):
		return http.StatusNotFound
	case errors.Is(err, entities.ErrConfiguration),
		errors.Is(err, entities.ErrBlockNotFound),
		errors.Is(err, entities.ErrPriceUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func isValidAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

// chainIDParam reads chain_id, defaulting to Ethereum mainnet
func chainIDParam(r *http.Request) (int64, bool) {
	v := r.URL.Query().Get("chain_id")
	if v == "" {
		return defaultChainID, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func boolParam(r *http.Request, name string, fallback bool) bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// listParam splits a comma separated query value, dropping blanks
func listParam(r *http.Request, name string) []string {
	var out []string
	for _, v := range strings.Split(r.URL.Query().Get(name), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
