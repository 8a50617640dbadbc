package amm

import "errors"

var (
	ErrIdenticalAssets       = errors.New("assets must be different")
	ErrPairExists            = errors.New("pair already exists")
	ErrPairMissing           = errors.New("pair does not exist")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrInsufficientAmount    = errors.New("insufficient amount")
	ErrSlippage              = errors.New("output below minimum")
	ErrExpired               = errors.New("deadline expired")
	ErrOverflow              = errors.New("arithmetic overflow")
)
