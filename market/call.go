package market

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"nftify-back-onchain/chain"
	"nftify-back-onchain/model"
)

var _ chain.Caller = (*Marketplace)(nil)

// listingTuple mirrors the NFTify.Listing struct in the ABI.
type listingTuple struct {
	Price  *big.Int
	Seller common.Address
}

// Call answers read-only ABI calls.
func (m *Marketplace) Call(input []byte) ([]byte, error) {
	method, args, err := chain.DecodeCall(ABI, input)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "getListing":
		id, ok := args[1].(*big.Int)
		if !ok || !id.IsUint64() {
			return method.Outputs.Pack(listingTuple{Price: new(big.Int)})
		}
		l := m.GetListing(args[0].(common.Address), id.Uint64())
		return method.Outputs.Pack(listingTuple{Price: l.Price, Seller: l.Seller})
	case "getProceeds":
		return method.Outputs.Pack(m.GetProceeds(args[0].(common.Address)))
	default:
		return nil, fmt.Errorf("method %s is not a view", method.Name)
	}
}

// UnpackListing decodes the output of a getListing call.
func UnpackListing(out []byte) (model.Listing, error) {
	values, err := ABI.Unpack("getListing", out)
	if err != nil {
		return model.Listing{}, err
	}
	if len(values) != 1 {
		return model.Listing{}, fmt.Errorf("getListing: want 1 output, got %d", len(values))
	}
	res := *abi.ConvertType(values[0], new(listingTuple)).(*listingTuple)
	return model.Listing{Price: res.Price, Seller: res.Seller}, nil
}
