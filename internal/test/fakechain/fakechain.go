// Package fakechain is an in-memory ERC20 underlying plus ERC4626 vault for
// one account. It implements the read provider and write submitter used by
// the vault workflows.
package fakechain

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/yield-vault/internal/chain"
)

var (
	Vault      = common.HexToAddress("0x000000000000000000000000000000000000a11d")
	Underlying = common.HexToAddress("0x000000000000000000000000000000000000b0b0")
	Account    = common.HexToAddress("0x000000000000000000000000000000000000cafe")
)

// Submission is a recorded write call.
type Submission struct {
	Hash common.Hash
	Call chain.Call
}

type outcome struct {
	err error
}

// Chain is safe for concurrent use.
type Chain struct {
	mu sync.Mutex

	block     uint64
	name      string
	allowance *big.Int
	balance   *big.Int
	shares    *big.Int
	// previewed assets per share, in percent
	previewRate int64

	manual  bool
	pending  map[common.Hash]chan outcome
	calls    map[common.Hash]chain.Call
	receipts map[common.Hash]*types.Receipt

	submissions []Submission
	reads       int

	readErr    error
	prepareErr error
	submitErr  error
}

func New() *Chain {
	return &Chain{
		block:       1,
		name:        "Test Token",
		allowance:   big.NewInt(0),
		balance:     big.NewInt(0),
		shares:      big.NewInt(0),
		previewRate: 100,
		pending:     map[common.Hash]chan outcome{},
		calls:       map[common.Hash]chain.Call{},
		receipts:    map[common.Hash]*types.Receipt{},
	}
}

// SetState overwrites the token state and mines a block.
func (c *Chain) SetState(allowance, balance, shares int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.allowance = big.NewInt(allowance)
	c.balance = big.NewInt(balance)
	c.shares = big.NewInt(shares)
	c.block++
}

func (c *Chain) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

func (c *Chain) SetPreviewRate(percent int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.previewRate = percent
}

// SetManual makes AwaitConfirmations block until Confirm or Fail is called.
func (c *Chain) SetManual(manual bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manual = manual
}

func (c *Chain) SetReadErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readErr = err
}

func (c *Chain) SetPrepareErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prepareErr = err
}

func (c *Chain) SetSubmitErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitErr = err
}

func (c *Chain) Block() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.block
}

func (c *Chain) Allowance() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.allowance)
}

func (c *Chain) Submissions() []Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Submission(nil), c.submissions...)
}

func (c *Chain) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

func (c *Chain) LatestBlock(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readErr != nil {
		return 0, c.readErr
	}
	return c.block, nil
}

func (c *Chain) ChainID(_ context.Context) (*big.Int, error) {
	return big.NewInt(5), nil
}

func (c *Chain) ReadBatch(_ context.Context, _ uint64, calls []chain.Call) ([]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.readErr != nil {
		return nil, c.readErr
	}
	c.reads++

	results := make([]any, len(calls))
	for i, call := range calls {
		switch {
		case call.Method == "name":
			results[i] = c.name
		case call.Method == "allowance":
			results[i] = new(big.Int).Set(c.allowance)
		case call.Method == "balanceOf" && call.Contract == Underlying:
			results[i] = new(big.Int).Set(c.balance)
		case call.Method == "balanceOf" && call.Contract == Vault:
			results[i] = new(big.Int).Set(c.shares)
		case call.Method == "previewRedeem":
			results[i] = c.preview(argInt(call, 0))
		default:
			return nil, errors.Errorf("fakechain: unsupported read %s", call)
		}
	}

	return results, nil
}

func (c *Chain) Prepare(_ context.Context, call chain.Call) (*chain.PreparedCall, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.prepareErr != nil {
		return nil, c.prepareErr
	}

	data, err := call.Pack()
	if err != nil {
		return nil, err
	}

	return &chain.PreparedCall{Call: call, From: Account, To: call.Contract, Data: data, Gas: 100000}, nil
}

func (c *Chain) Submit(_ context.Context, prepared *chain.PreparedCall) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitErr != nil {
		return common.Hash{}, c.submitErr
	}

	hash := crypto.Keccak256Hash(prepared.Data, big.NewInt(int64(len(c.submissions))).Bytes())
	c.submissions = append(c.submissions, Submission{Hash: hash, Call: prepared.Call})
	c.calls[hash] = prepared.Call
	c.pending[hash] = make(chan outcome, 1)

	return hash, nil
}

// AwaitConfirmations applies the call's effects and returns a receipt. In
// manual mode it waits for Confirm or Fail first.
func (c *Chain) AwaitConfirmations(ctx context.Context, hash common.Hash, _ uint64) (*types.Receipt, error) {
	c.mu.Lock()
	ch, ok := c.pending[hash]
	manual := c.manual
	c.mu.Unlock()

	if !ok {
		return nil, errors.Errorf("fakechain: unknown transaction %s", hash.Hex())
	}

	if manual {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case out := <-ch:
			if out.err != nil {
				return nil, out.err
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.apply(c.calls[hash])
	c.block++
	delete(c.pending, hash)

	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(c.block),
	}
	c.receipts[hash] = receipt

	return receipt, nil
}

// TransactionReceipt returns the receipt of a confirmed submission.
func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	receipt, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// Confirm releases a manual AwaitConfirmations for the latest submission.
func (c *Chain) Confirm() {
	c.resolve(nil)
}

// Fail makes a manual AwaitConfirmations for the latest submission return err.
func (c *Chain) Fail(err error) {
	c.resolve(err)
}

func (c *Chain) resolve(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.submissions) == 0 {
		return
	}

	hash := c.submissions[len(c.submissions)-1].Hash
	if ch, ok := c.pending[hash]; ok {
		ch <- outcome{err: err}
	}
}

func (c *Chain) apply(call chain.Call) {
	switch call.Method {
	case "approve":
		c.allowance = argInt(call, 1)
	case "deposit":
		amount := argInt(call, 0)
		c.balance.Sub(c.balance, amount)
		c.shares.Add(c.shares, amount)
		if c.allowance.Cmp(amount) >= 0 {
			c.allowance.Sub(c.allowance, amount)
		} else {
			c.allowance.SetInt64(0)
		}
	case "redeem":
		amount := argInt(call, 0)
		c.balance.Add(c.balance, c.preview(amount))
		c.shares.Sub(c.shares, amount)
	}
}

func (c *Chain) preview(shares *big.Int) *big.Int {
	out := new(big.Int).Mul(shares, big.NewInt(c.previewRate))
	return out.Div(out, big.NewInt(100))
}

func argInt(call chain.Call, i int) *big.Int {
	if i >= len(call.Args) {
		return new(big.Int)
	}
	if n, ok := call.Args[i].(*big.Int); ok && n != nil {
		return new(big.Int).Set(n)
	}
	return new(big.Int)
}
