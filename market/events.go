package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"nftify-back-onchain/chain"
)

func (m *Marketplace) emitItemListed(tx *chain.Tx, seller, nftAddr common.Address, tokenID uint64, price *big.Int) error {
	return chain.EmitEvent(tx, m.address, ABI.Events["ItemListed"], []common.Hash{
		chain.AddressTopic(seller), chain.AddressTopic(nftAddr), chain.Uint64Topic(tokenID),
	}, new(big.Int).Set(price))
}

func (m *Marketplace) emitItemCanceled(tx *chain.Tx, seller, nftAddr common.Address, tokenID uint64) error {
	return chain.EmitEvent(tx, m.address, ABI.Events["ItemCanceled"], []common.Hash{
		chain.AddressTopic(seller), chain.AddressTopic(nftAddr), chain.Uint64Topic(tokenID),
	})
}

func (m *Marketplace) emitItemBought(tx *chain.Tx, buyer, nftAddr common.Address, tokenID uint64, price *big.Int) error {
	return chain.EmitEvent(tx, m.address, ABI.Events["ItemBought"], []common.Hash{
		chain.AddressTopic(buyer), chain.AddressTopic(nftAddr), chain.Uint64Topic(tokenID),
	}, new(big.Int).Set(price))
}
