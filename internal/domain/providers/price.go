package providers

import "context"

// PriceFeed returns the current USD price of a token. Unknown chains wrap
// entities.ErrUnsupportedChain and missing prices wrap entities.ErrPriceUnavailable.
type PriceFeed interface {
	CurrentPrice(ctx context.Context, chainID int64, address string) (float64, error)
}
