package model

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const etherDecimals = 18

// FormatEther renders a wei amount in ether, e.g. 1e17 -> "0.1".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -etherDecimals).String()
}

// ParseEther converts a decimal ether string to wei. Negative amounts and
// amounts finer than one wei are rejected.
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse ether %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("parse ether %q: negative amount", s)
	}
	wei := d.Shift(etherDecimals)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("parse ether %q: more than %d decimals", s, etherDecimals)
	}
	return wei.BigInt(), nil
}

// ParseWei parses a base-10 wei string.
func ParseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid wei amount %q", s)
	}
	return v, nil
}
