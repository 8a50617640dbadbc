package launchpad

import "errors"

var (
	ErrInvalidAmount            = errors.New("invalid trade amount")
	ErrDeadlineExpired          = errors.New("deadline expired")
	ErrSlippageExceeded         = errors.New("slippage bound exceeded")
	ErrMarketGraduated          = errors.New("market has graduated")
	ErrInsufficientTokenReserve = errors.New("trade would breach token reserve floor")
	ErrInsufficientAssetReserve = errors.New("trade would breach asset reserve floor")
	ErrExternalCallFailed       = errors.New("amm call failed")
	ErrBelowThreshold           = errors.New("reserve below graduation threshold")
	ErrNotAdmin                 = errors.New("admin capability required")
	ErrUnknownMarket            = errors.New("unknown market")
	ErrMarketExists             = errors.New("market already exists")
	ErrInvalidParams            = errors.New("invalid market parameters")
)
