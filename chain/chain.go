// Package chain is the in-process execution host for the marketplace
// contracts. It applies transactions one at a time in a single global order,
// journals every state write so a failed transaction leaves no trace, and
// exposes blocks, receipts and logs through the same interfaces ethclient
// implements.
package chain

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"nftify-back-onchain/model"
)

// Caller is implemented by contracts that answer read-only ABI calls.
type Caller interface {
	Call(input []byte) ([]byte, error)
}

// ValueReceiver is implemented by contracts that run code when native value
// is sent to them. A returned error reverts the transfer.
type ValueReceiver interface {
	ReceiveValue(tx *Tx, from common.Address, amount *uint256.Int) error
}

// Binder is implemented by contracts that need to know their own address.
type Binder interface {
	Bind(addr common.Address)
}

// TxOpts describes the envelope of a transaction.
type TxOpts struct {
	From  common.Address
	To    *common.Address
	Value *big.Int
}

type txRecord struct {
	tx      *types.Transaction
	receipt *types.Receipt
	reason  string
}

// Chain holds all host state. Contract state reachable through Code must only
// be touched inside Transact or Query.
type Chain struct {
	mu           sync.RWMutex
	feedMu       sync.Mutex
	logsFeed     event.FeedOf[types.Log]
	receiptsFeed event.FeedOf[[]*types.Receipt]

	balances map[common.Address]*uint256.Int
	nonces   map[common.Address]uint64
	code     map[common.Address]any
	headers  []*types.Header
	hashes   []common.Hash
	logs     []*types.Log
	txs      map[common.Hash]*txRecord
}

// New returns a chain holding only the genesis block.
func New() *Chain {
	genesis := &types.Header{Number: new(big.Int)}
	return &Chain{
		balances: make(map[common.Address]*uint256.Int),
		nonces:   make(map[common.Address]uint64),
		code:     make(map[common.Address]any),
		headers:  []*types.Header{genesis},
		hashes:   []common.Hash{{}},
		txs:      make(map[common.Hash]*txRecord),
	}
}

// Deploy registers contract under the address derived from deployer and its
// nonce, the same way CREATE derives contract addresses.
func (c *Chain) Deploy(deployer common.Address, contract any) common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()

	addr := crypto.CreateAddress(deployer, c.nonces[deployer])
	c.nonces[deployer]++
	c.code[addr] = contract
	if b, ok := contract.(Binder); ok {
		b.Bind(addr)
	}
	log.Info("Contract deployed", "address", addr, "deployer", deployer, "type", fmt.Sprintf("%T", contract))
	return addr
}

// Code returns the contract registered at addr, or nil.
func (c *Chain) Code(addr common.Address) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.code[addr]
}

// Fund credits a genesis allocation to addr.
func (c *Chain) Fund(addr common.Address, amount *big.Int) error {
	v, overflow := uint256.FromBig(amount)
	if overflow || amount.Sign() < 0 {
		return fmt.Errorf("fund %s: %w", addr.Hex(), model.ErrOverflow)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.balance(addr)
	sum, overflow := new(uint256.Int).AddOverflow(cur, v)
	if overflow {
		return fmt.Errorf("fund %s: %w", addr.Hex(), model.ErrOverflow)
	}
	c.balances[addr] = sum
	return nil
}

// Head returns the latest block number.
func (c *Chain) Head() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint64(len(c.headers) - 1)
}

// Query runs fn under the shared lock so it observes a consistent state
// between transactions.
func (c *Chain) Query(fn func() error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn()
}

// Transact executes fn as one all-or-nothing transaction. Opts.Value is
// moved from opts.From to opts.To before fn runs. If fn fails, every
// journaled write is undone, logs are dropped and a failed receipt is stored.
// Each call produces one block.
func (c *Chain) Transact(ctx context.Context, opts TxOpts, fn func(tx *Tx) error) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value := new(uint256.Int)
	if opts.Value != nil {
		v, overflow := uint256.FromBig(opts.Value)
		if overflow || opts.Value.Sign() < 0 {
			return nil, fmt.Errorf("tx value: %w", model.ErrOverflow)
		}
		value = v
	}
	if !value.IsZero() && opts.To == nil {
		return nil, fmt.Errorf("tx value without recipient")
	}

	c.mu.Lock()
	if c.balance(opts.From).Lt(value) {
		c.mu.Unlock()
		return nil, fmt.Errorf("sender %s: %w", opts.From.Hex(), model.ErrInsufficientBalance)
	}

	nonce := c.nonces[opts.From]
	c.nonces[opts.From]++
	hash := crypto.Keccak256Hash(opts.From.Bytes(), binary.BigEndian.AppendUint64(nil, nonce))

	tx := &Tx{chain: c, origin: opts.From, to: opts.To, value: value, hash: hash}
	root := tx.Snapshot()
	err := tx.execute(fn)
	if err != nil {
		tx.RevertToSnapshot(root)
	}
	receipt := c.seal(tx, nonce, err)

	published := receipt.Logs
	c.feedMu.Lock()
	c.mu.Unlock()
	for _, l := range published {
		c.logsFeed.Send(*l)
	}
	c.receiptsFeed.Send([]*types.Receipt{receipt})
	c.feedMu.Unlock()

	log.Debug("Transaction executed", "hash", hash, "from", opts.From, "block", receipt.BlockNumber, "status", receipt.Status, "logs", len(published))
	return receipt, err
}

// seal mines tx into a new block. Callers hold c.mu.
func (c *Chain) seal(tx *Tx, nonce uint64, execErr error) *types.Receipt {
	parent := c.headers[len(c.headers)-1]
	number := new(big.Int).Add(parent.Number, common.Big1)
	header := &types.Header{
		ParentHash: c.hashes[len(c.hashes)-1],
		Number:     number,
		Time:       parent.Time + 1,
		TxHash:     tx.hash,
	}
	blockHash := crypto.Keccak256Hash(header.ParentHash.Bytes(), number.Bytes(), tx.hash.Bytes())
	c.headers = append(c.headers, header)
	c.hashes = append(c.hashes, blockHash)

	receipt := &types.Receipt{
		Type:              types.LegacyTxType,
		TxHash:            tx.hash,
		BlockHash:         blockHash,
		BlockNumber:       number,
		EffectiveGasPrice: new(big.Int),
		Logs:              []*types.Log{},
	}
	rec := &txRecord{
		tx: types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       tx.to,
			Value:    tx.value.ToBig(),
			GasPrice: new(big.Int),
		}),
		receipt: receipt,
	}

	if execErr != nil {
		receipt.Status = types.ReceiptStatusFailed
		rec.reason = model.ReasonOf(execErr)
	} else {
		receipt.Status = types.ReceiptStatusSuccessful
		for i, l := range tx.logs {
			l.BlockNumber = number.Uint64()
			l.BlockHash = blockHash
			l.TxHash = tx.hash
			l.Index = uint(i)
			c.logs = append(c.logs, l)
		}
		receipt.Logs = append(receipt.Logs, tx.logs...)
	}
	c.txs[tx.hash] = rec
	return receipt
}

// balance returns the balance of addr. Callers hold c.mu.
func (c *Chain) balance(addr common.Address) *uint256.Int {
	if b, ok := c.balances[addr]; ok {
		return b
	}
	return new(uint256.Int)
}
