package market_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nftify-back-onchain/chain"
	"nftify-back-onchain/market"
	"nftify-back-onchain/model"
)

// attacker is a contract account that calls back into the marketplace
// whenever it receives value or a token.
type attacker struct {
	addr   common.Address
	market *market.Marketplace
	nft    common.Address

	reentered error
	hits      int
}

func (a *attacker) Bind(addr common.Address) { a.addr = addr }

func (a *attacker) ReceiveValue(tx *chain.Tx, from common.Address, amount *uint256.Int) error {
	if from != a.market.Address() {
		return nil
	}
	a.hits++
	_, a.reentered = a.market.Withdraw(tx, a.addr)
	return nil
}

func (a *attacker) OnAssetReceived(tx *chain.Tx, operator, from common.Address, tokenID uint64) error {
	a.hits++
	a.reentered = a.market.BuyItem(tx, a.nft, tokenID, tx.Value().ToBig(), a.addr)
	return nil
}

func TestWithdrawReentrancy(t *testing.T) {
	f := newFixture(t)
	evil := &attacker{market: f.market, nft: f.nft.Address()}
	f.chain.Deploy(stranger, evil)

	f.send(t, deployer, nil, func(tx *chain.Tx) error {
		return f.nft.TransferFrom(tx, deployer, evil.addr, tokenID, deployer)
	})
	owner, err := f.nft.OwnerOf(tokenID)
	require.NoError(t, err)
	require.Equal(t, evil.addr, owner)
	evil.hits = 0

	f.send(t, evil.addr, nil, func(tx *chain.Tx) error {
		if err := f.nft.Approve(tx, tokenID, f.market.Address(), evil.addr); err != nil {
			return err
		}
		return f.market.ListItem(tx, f.nft.Address(), tokenID, price, evil.addr)
	})
	_, err = f.buy(buyer, price)
	require.NoError(t, err)

	amount, err := f.withdraw(evil.addr)
	require.NoError(t, err)
	assert.Equal(t, 0, price.Cmp(amount))
	assert.Equal(t, 1, evil.hits)
	assert.ErrorIs(t, evil.reentered, model.ErrNothingToWithdraw)

	assert.Equal(t, 0, price.Cmp(f.balance(t, evil.addr)))
	assert.Equal(t, 0, f.balance(t, f.market.Address()).Sign())
	assert.Equal(t, 0, f.market.GetProceeds(evil.addr).Sign())
}

func TestBuyReentrancy(t *testing.T) {
	f := newFixture(t)
	evil := &attacker{market: f.market, nft: f.nft.Address()}
	f.chain.Deploy(stranger, evil)
	require.NoError(t, f.chain.Fund(evil.addr, big.NewInt(1e18)))
	require.NoError(t, f.list(deployer, price))

	_, err := f.buy(evil.addr, price)
	require.NoError(t, err)
	assert.Equal(t, 1, evil.hits)
	assert.ErrorIs(t, evil.reentered, model.ErrNotListed)

	owner, err := f.nft.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, evil.addr, owner)
	assert.Equal(t, 0, price.Cmp(f.market.GetProceeds(deployer)))
	assert.Equal(t, 0, price.Cmp(f.balance(t, f.market.Address())))
}

// refusing rejects every payout, so withdrawals to it fail.
type refusing struct{}

func (refusing) ReceiveValue(tx *chain.Tx, from common.Address, amount *uint256.Int) error {
	return assert.AnError
}

func TestWithdrawFailedPayoutKeepsProceeds(t *testing.T) {
	f := newFixture(t)
	seller := f.chain.Deploy(stranger, refusing{})

	f.send(t, deployer, nil, func(tx *chain.Tx) error {
		return f.nft.TransferFrom(tx, deployer, seller, tokenID, deployer)
	})
	f.send(t, seller, nil, func(tx *chain.Tx) error {
		if err := f.nft.Approve(tx, tokenID, f.market.Address(), seller); err != nil {
			return err
		}
		return f.market.ListItem(tx, f.nft.Address(), tokenID, price, seller)
	})
	_, err := f.buy(buyer, price)
	require.NoError(t, err)

	_, err = f.withdraw(seller)
	assert.ErrorIs(t, err, model.ErrTransferFailed)
	assert.Equal(t, 0, price.Cmp(f.market.GetProceeds(seller)))
	assert.Equal(t, 0, price.Cmp(f.balance(t, f.market.Address())))
}
