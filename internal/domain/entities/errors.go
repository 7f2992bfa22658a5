package entities

import "errors"

var (
	// ErrInvalidInput marks caller mistakes rejected before any network call
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfiguration marks a missing RPC, token list or market catalog
	ErrConfiguration = errors.New("configuration error")

	// ErrRangeInverted is returned when a resolved block range runs backwards
	ErrRangeInverted = errors.New("block range inverted")

	ErrPriceUnavailable    = errors.New("price unavailable")
	ErrUnsupportedChain    = errors.New("unsupported chain")
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	ErrBlockNotFound       = errors.New("block not found")
)
