package ledger

import "errors"

var (
	ErrAssetExists           = errors.New("asset already registered")
	ErrUnknownAsset          = errors.New("unknown asset")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)
