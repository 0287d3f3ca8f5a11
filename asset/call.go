package asset

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"nftify-back-onchain/chain"
)

var _ chain.Caller = (*Collection)(nil)

// Call answers read-only ABI calls.
func (c *Collection) Call(input []byte) ([]byte, error) {
	method, args, err := chain.DecodeCall(ABI, input)
	if err != nil {
		return nil, err
	}

	var out []any
	switch method.Name {
	case "name":
		out = []any{c.name}
	case "symbol":
		out = []any{c.symbol}
	case "getTokenCounter":
		out = []any{new(big.Int).SetUint64(c.counter)}
	case "balanceOf":
		out = []any{new(big.Int).SetUint64(c.BalanceOf(args[0].(common.Address)))}
	case "isApprovedForAll":
		out = []any{c.IsApprovedForAll(args[0].(common.Address), args[1].(common.Address))}
	case "ownerOf", "tokenURI", "getApproved":
		id, err := tokenArg(args[0])
		if err != nil {
			return nil, err
		}
		var v any
		switch method.Name {
		case "ownerOf":
			v, err = c.OwnerOf(id)
		case "tokenURI":
			v, err = c.TokenURI(id)
		default:
			v, err = c.GetApproved(id)
		}
		if err != nil {
			return nil, err
		}
		out = []any{v}
	default:
		return nil, fmt.Errorf("method %s is not a view", method.Name)
	}
	return method.Outputs.Pack(out...)
}
