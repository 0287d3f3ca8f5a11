package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

// The read side of Chain mirrors ethclient so gateways can be written once
// against the go-ethereum interfaces.
var (
	_ ethereum.ContractCaller    = (*Chain)(nil)
	_ ethereum.LogFilterer       = (*Chain)(nil)
	_ ethereum.TransactionReader = (*Chain)(nil)
)

// CallContract executes a read-only call against the latest state.
func (c *Chain) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if msg.To == nil {
		return nil, fmt.Errorf("call without recipient")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	if blockNumber != nil && blockNumber.Sign() >= 0 && blockNumber.Uint64() != uint64(len(c.headers)-1) {
		return nil, fmt.Errorf("historical state at block %s is not available", blockNumber)
	}
	callee, ok := c.code[*msg.To].(Caller)
	if !ok {
		return nil, fmt.Errorf("no contract code at %s", msg.To.Hex())
	}
	return callee.Call(msg.Data)
}

// HeaderByNumber returns the header at number, or the latest one for nil.
func (c *Chain) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if number == nil || number.Sign() < 0 {
		return types.CopyHeader(c.headers[len(c.headers)-1]), nil
	}
	if !number.IsUint64() || number.Uint64() >= uint64(len(c.headers)) {
		return nil, ethereum.NotFound
	}
	return types.CopyHeader(c.headers[number.Uint64()]), nil
}

// BalanceAt returns the native balance of account at the latest block.
func (c *Chain) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.balance(account).ToBig(), nil
}

// TransactionByHash returns a sealed transaction. Sealed transactions are
// never pending.
func (c *Chain) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return rec.tx, false, nil
}

// TransactionReceipt returns the receipt of a sealed transaction.
func (c *Chain) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.txs[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return rec.receipt, nil
}

// RevertReason returns the failure reason recorded for a failed transaction.
func (c *Chain) RevertReason(hash common.Hash) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.txs[hash]
	if !ok || rec.reason == "" {
		return "", false
	}
	return rec.reason, true
}

// FilterLogs returns the logs of successful transactions matching q.
func (c *Chain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	head := uint64(len(c.headers) - 1)
	from, to := resolveRange(q, head)
	var out []types.Log
	for _, l := range c.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if matchLog(q, l) {
			out = append(out, *l)
		}
	}
	return out, nil
}

// SubscribeFilterLogs streams logs matching q as transactions are sealed.
func (c *Chain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return forward(&c.logsFeed, ch, func(l types.Log) (types.Log, bool) {
		return l, matchLog(q, &l)
	}), nil
}

// SubscribeTransactionReceipts streams the receipt of every sealed
// transaction, or only those named by q.
func (c *Chain) SubscribeTransactionReceipts(ctx context.Context, q *ethereum.TransactionReceiptsQuery, ch chan<- []*types.Receipt) (ethereum.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var want map[common.Hash]bool
	if q != nil && len(q.TransactionHashes) > 0 {
		want = make(map[common.Hash]bool, len(q.TransactionHashes))
		for _, h := range q.TransactionHashes {
			want[h] = true
		}
	}
	return forward(&c.receiptsFeed, ch, func(batch []*types.Receipt) ([]*types.Receipt, bool) {
		if want == nil {
			return batch, true
		}
		var out []*types.Receipt
		for _, r := range batch {
			if want[r.TxHash] {
				out = append(out, r)
			}
		}
		return out, len(out) > 0
	}), nil
}

// ErrSubscriberTooSlow ends a subscription whose consumer fell more than
// maxPending items behind.
var ErrSubscriberTooSlow = errors.New("subscriber fell too far behind")

var maxPending = 4096

// forward relays feed items accepted by keep into ch. Items are taken off the
// feed as soon as they are sent and queued per subscriber, so a consumer that
// stops reading never holds up Transact. Overflowing the queue drops the
// subscription with ErrSubscriberTooSlow.
func forward[T any](feed *event.FeedOf[T], ch chan<- T, keep func(T) (T, bool)) event.Subscription {
	sink := make(chan T, 64)
	sub := feed.Subscribe(sink)

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		var queue []T
		for {
			var (
				out  chan<- T
				next T
			)
			if len(queue) > 0 {
				out, next = ch, queue[0]
			}
			select {
			case v := <-sink:
				v, ok := keep(v)
				if !ok {
					continue
				}
				if len(queue) >= maxPending {
					return ErrSubscriberTooSlow
				}
				queue = append(queue, v)
			case out <- next:
				var zero T
				queue[0] = zero
				queue = queue[1:]
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			}
		}
	})
}

func resolveRange(q ethereum.FilterQuery, head uint64) (uint64, uint64) {
	from, to := uint64(0), head
	if q.FromBlock != nil && q.FromBlock.Sign() >= 0 {
		from = q.FromBlock.Uint64()
	}
	if q.ToBlock != nil && q.ToBlock.Sign() >= 0 && q.ToBlock.Uint64() < head {
		to = q.ToBlock.Uint64()
	}
	return from, to
}

// matchLog applies address and positional topic filters the way eth_getLogs
// does: an empty position matches anything, otherwise any listed topic.
func matchLog(q ethereum.FilterQuery, l *types.Log) bool {
	if len(q.Addresses) > 0 {
		found := false
		for _, a := range q.Addresses {
			if a == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(q.Topics) > len(l.Topics) {
		return false
	}
	for i, alts := range q.Topics {
		if len(alts) == 0 {
			continue
		}
		found := false
		for _, t := range alts {
			if t == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
