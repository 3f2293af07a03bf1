package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultEIP1559Multiplier    = 2
	defaultGasBufferPercent     = 20
	defaultReceiptPollInterval  = 2 * time.Second
	maxConsecutiveReceiptErrors = 5
)

// ErrTransactionReverted is returned by AwaitConfirmations for receipts with a failed status.
var ErrTransactionReverted = errors.New("transaction reverted")

// Backend is the subset of RPCClient the submitter needs.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	LatestBlock(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, address common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// TxSigner signs transactions for a single account.
type TxSigner interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// PreparedCall is a call that passed gas estimation and is ready to be signed.
type PreparedCall struct {
	Call Call
	From common.Address
	To   common.Address
	Data []byte
	Gas  uint64
}

type SubmitterOption func(*Submitter)

func WithReceiptPollInterval(d time.Duration) SubmitterOption {
	return func(s *Submitter) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

func WithGasBufferPercent(p uint64) SubmitterOption {
	return func(s *Submitter) {
		s.gasBufferPercent = p
	}
}

// Submitter prepares, signs, broadcasts and tracks write transactions.
type Submitter struct {
	backend          Backend
	signer           TxSigner
	pollInterval     time.Duration
	gasBufferPercent uint64

	// mu serializes Submit from the nonce read through broadcast.
	mu        sync.Mutex
	nextNonce uint64
	hasNonce  bool
}

func NewSubmitter(backend Backend, signer TxSigner, opts ...SubmitterOption) *Submitter {
	s := &Submitter{
		backend:          backend,
		signer:           signer,
		pollInterval:     defaultReceiptPollInterval,
		gasBufferPercent: defaultGasBufferPercent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Submitter) Account() common.Address {
	return s.signer.Address()
}

// Prepare packs call and estimates its gas. A call that would revert fails here,
// before anything is signed.
func (s *Submitter) Prepare(ctx context.Context, call Call) (*PreparedCall, error) {
	data, err := call.Pack()
	if err != nil {
		return nil, err
	}

	from := s.signer.Address()
	to := call.Contract

	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "pre-flight of %s failed", call)
	}

	gas += gas * s.gasBufferPercent / 100

	return &PreparedCall{
		Call: call,
		From: from,
		To:   to,
		Data: data,
		Gas:  gas,
	}, nil
}

// Submit signs prepared as an EIP-1559 transaction and broadcasts it.
func (s *Submitter) Submit(ctx context.Context, prepared *PreparedCall) (common.Hash, error) {
	if prepared == nil {
		return common.Hash{}, errors.New("nothing prepared")
	}

	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, err := s.backend.PendingNonceAt(ctx, prepared.From)
	if err != nil {
		return common.Hash{}, err
	}
	// a node may not count a just-broadcast transaction as pending yet
	if s.hasNonce && s.nextNonce > nonce {
		nonce = s.nextNonce
	}

	tipCap, err := s.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	header, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, err
	}

	baseFee := header.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}

	// maxFee = baseFee * 2 + tip
	feeCap := new(big.Int).Add(
		new(big.Int).Mul(baseFee, big.NewInt(defaultEIP1559Multiplier)),
		tipCap,
	)

	to := prepared.To
	//nolint:varnamelen // tx is a common abbreviation for transaction
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       prepared.Gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      prepared.Data,
	})

	signed, err := s.signer.SignTx(tx, chainID)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to sign transaction")
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	s.nextNonce = nonce + 1
	s.hasNonce = true

	log.Info().
		Str("tx_hash", signed.Hash().Hex()).
		Str("call", prepared.Call.String()).
		Uint64("nonce", nonce).
		Uint64("gas", prepared.Gas).
		Msg("Transaction broadcast")

	return signed.Hash(), nil
}

// AwaitConfirmations blocks until the transaction is included and its block
// has n confirmations, counting the inclusion block. There is no timeout; cancel
// ctx to stop waiting. The receipt is re-read on every poll, so a reorg that
// moves or drops the transaction is followed.
func (s *Submitter) AwaitConfirmations(ctx context.Context, hash common.Hash, n uint64) (*types.Receipt, error) {
	if n == 0 {
		n = 1
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	consecutiveErrors := 0
	for {
		receipt, done, err := s.checkConfirmations(ctx, hash, n)
		switch {
		case done:
			return receipt, err
		case err != nil:
			consecutiveErrors++
			log.Warn().Err(err).Str("tx_hash", hash.Hex()).Int("attempt", consecutiveErrors).Msg("Failed to poll transaction receipt")
			if consecutiveErrors >= maxConsecutiveReceiptErrors {
				return nil, errors.Wrap(err, "giving up on receipt polling")
			}
		default:
			consecutiveErrors = 0
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "context canceled while waiting for confirmations")
		case <-ticker.C:
		}
	}
}

func (s *Submitter) checkConfirmations(ctx context.Context, hash common.Hash, n uint64) (*types.Receipt, bool, error) {
	receipt, err := s.backend.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, false, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, true, ctx.Err()
		}
		return nil, false, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, true, errors.Wrapf(ErrTransactionReverted, "tx %s in block %s", hash.Hex(), receipt.BlockNumber)
	}

	head, err := s.backend.LatestBlock(ctx)
	if err != nil {
		return nil, false, err
	}

	included := receipt.BlockNumber.Uint64()
	if head < included || head-included+1 < n {
		return nil, false, nil
	}

	return receipt, true, nil
}
