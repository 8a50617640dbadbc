// Package schemas defines the wire form of launchpad operations:
// JSON (or query-string memo) instructions that front ends hand to the
// CLI scenario runner. Amounts are decimal strings in base units.
package schemas

import (
	"encoding/json"

	"github.com/holiman/uint256"
)

// Instruction types.
const (
	TypeLaunch = "launch"
	TypeBuy    = "buy"
	TypeSell   = "sell"
)

// Instruction is one decoded launchpad operation.
type Instruction interface {
	Type() string
	Validate() error
}

// LaunchInstruction creates a new curve market.
type LaunchInstruction struct {
	InstructionType string  `json:"type"`
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	Creator         string  `json:"creator"`
	InvariantK      string  `json:"invariant_k"`
	AssetRate       string  `json:"asset_rate"`
	Threshold       string  `json:"graduation_threshold"`
	CurveSupply     string  `json:"curve_supply"`
	FeeBps          *uint64 `json:"fee_bps,omitempty"`
}

func (l LaunchInstruction) Type() string { return l.InstructionType }

func (l LaunchInstruction) Validate() error {
	if l.InstructionType != TypeLaunch {
		return &ValidationError{Field: "type", Message: `type must be "launch"`}
	}
	if l.Name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if l.Symbol == "" {
		return &ValidationError{Field: "symbol", Message: "symbol is required"}
	}
	if l.Creator == "" {
		return &ValidationError{Field: "creator", Message: "creator is required"}
	}
	for _, f := range []struct{ name, value string }{
		{"invariant_k", l.InvariantK},
		{"asset_rate", l.AssetRate},
		{"graduation_threshold", l.Threshold},
		{"curve_supply", l.CurveSupply},
	} {
		if err := checkAmount(f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}

// ToJSON serializes the instruction.
func (l LaunchInstruction) ToJSON() ([]byte, error) { return json.Marshal(l) }

// TradeInstruction buys or sells against a market. AssetBound is the
// spend ceiling on a buy and the proceeds floor on a sell.
type TradeInstruction struct {
	InstructionType string `json:"type"`
	Market          string `json:"market"`
	Trader          string `json:"trader"`
	TokenAmount     string `json:"token_amount"`
	AssetBound      string `json:"asset_bound"`
	DeadlineSec     *int64 `json:"deadline_sec,omitempty"`
}

func (tr TradeInstruction) Type() string { return tr.InstructionType }

func (tr TradeInstruction) Validate() error {
	if tr.InstructionType != TypeBuy && tr.InstructionType != TypeSell {
		return &ValidationError{Field: "type", Message: `type must be "buy" or "sell"`}
	}
	if tr.Market == "" {
		return &ValidationError{Field: "market", Message: "market is required"}
	}
	if tr.Trader == "" {
		return &ValidationError{Field: "trader", Message: "trader is required"}
	}
	if err := checkAmount("token_amount", tr.TokenAmount); err != nil {
		return err
	}
	return checkAmount("asset_bound", tr.AssetBound)
}

func (tr TradeInstruction) ToJSON() ([]byte, error) { return json.Marshal(tr) }

// Amount decodes a base-unit decimal string field already vetted by
// Validate.
func Amount(s string) (*uint256.Int, error) {
	return uint256.FromDecimal(s)
}

func checkAmount(field, s string) error {
	if s == "" {
		return &ValidationError{Field: field, Message: field + " is required"}
	}
	if _, err := uint256.FromDecimal(s); err != nil {
		return &ValidationError{Field: field, Message: field + " must be a base-unit decimal string"}
	}
	return nil
}

// ValidationError reports the first offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}
