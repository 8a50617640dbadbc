package curve

import "errors"

var (
	ErrZeroAmount          = errors.New("zero trade amount")
	ErrZeroSupply          = errors.New("curve holds no supply")
	ErrAmountExceedsSupply = errors.New("amount meets or exceeds held supply")
	ErrZeroAssetRate       = errors.New("asset rate is zero")
	ErrOverflow            = errors.New("arithmetic overflow")
)
