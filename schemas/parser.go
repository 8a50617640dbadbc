package schemas

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ParseFromJSON decodes and validates a single instruction. The "type"
// discriminator selects the concrete shape.
func ParseFromJSON(data []byte) (Instruction, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var inst Instruction
	switch head.Type {
	case TypeLaunch:
		var l LaunchInstruction
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		inst = l
	case TypeBuy, TypeSell:
		var tr TradeInstruction
		if err := json.Unmarshal(data, &tr); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		inst = tr
	default:
		return nil, &ValidationError{Field: "type", Message: "unknown instruction type " + strconv.Quote(head.Type)}
	}

	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return inst, nil
}

// ParseFromQueryParams decodes an instruction from URL query
// parameters, the compact memo form.
func ParseFromQueryParams(query string) (Instruction, error) {
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query string: %w", err)
	}

	var inst Instruction
	switch typ := values.Get("type"); typ {
	case TypeLaunch:
		l := LaunchInstruction{
			InstructionType: typ,
			Name:            values.Get("name"),
			Symbol:          values.Get("symbol"),
			Creator:         values.Get("creator"),
			InvariantK:      values.Get("invariant_k"),
			AssetRate:       values.Get("asset_rate"),
			Threshold:       values.Get("graduation_threshold"),
			CurveSupply:     values.Get("curve_supply"),
		}
		if s := values.Get("fee_bps"); s != "" {
			if fee, err := strconv.ParseUint(s, 10, 64); err == nil {
				l.FeeBps = &fee
			}
		}
		inst = l
	case TypeBuy, TypeSell:
		tr := TradeInstruction{
			InstructionType: typ,
			Market:          values.Get("market"),
			Trader:          values.Get("trader"),
			TokenAmount:     values.Get("token_amount"),
			AssetBound:      values.Get("asset_bound"),
		}
		if s := values.Get("deadline_sec"); s != "" {
			if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
				tr.DeadlineSec = &sec
			}
		}
		inst = tr
	default:
		return nil, &ValidationError{Field: "type", Message: "unknown instruction type " + strconv.Quote(typ)}
	}

	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return inst, nil
}

// ParseFromMemo decodes an instruction from a memo string: JSON when it
// looks like an object, query parameters otherwise.
func ParseFromMemo(memo string) (Instruction, error) {
	memo = strings.TrimSpace(memo)
	if strings.HasPrefix(memo, "{") && strings.HasSuffix(memo, "}") {
		return ParseFromJSON([]byte(memo))
	}
	return ParseFromQueryParams(memo)
}

// ParseScenario decodes a JSON array of instructions, the CLI demo
// input format. Every entry is checked against the JSON schema before
// decoding, so unknown fields fail here rather than being silently
// dropped. The whole scenario is rejected on the first bad entry.
func ParseScenario(data []byte) ([]Instruction, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	out := make([]Instruction, 0, len(raws))
	for i, raw := range raws {
		if err := ValidateInstruction(raw); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		inst, err := ParseFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		out = append(out, inst)
	}
	return out, nil
}
