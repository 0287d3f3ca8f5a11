package chain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// AddressTopic encodes an indexed address argument.
func AddressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

// Uint64Topic encodes an indexed uint256 argument.
func Uint64Topic(v uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(v))
}

// EmitEvent ABI-encodes ev and appends it to tx as a log of contract.
// Indexed arguments are passed pre-encoded as topics, the rest as data.
func EmitEvent(tx *Tx, contract common.Address, ev abi.Event, topics []common.Hash, data ...any) error {
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", ev.Name, err)
	}
	tx.Emit(&types.Log{
		Address: contract,
		Topics:  append([]common.Hash{ev.ID}, topics...),
		Data:    packed,
	})
	return nil
}

// DecodeCall resolves the method selected by input and unpacks its arguments.
func DecodeCall(a abi.ABI, input []byte) (*abi.Method, []any, error) {
	if len(input) < 4 {
		return nil, nil, fmt.Errorf("calldata too short")
	}
	method, err := a.MethodById(input[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}
	return method, args, nil
}
