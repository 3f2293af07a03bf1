package chain_test

import (
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github/chapool/yield-vault/internal/chain"
)

var (
	vaultAddr      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	underlyingAddr = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	accountAddr    = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
	Data  hexutil.Bytes   `json:"data"`
}

func (a callArgs) payload() []byte {
	if len(a.Input) > 0 {
		return a.Input
	}
	return a.Data
}

// fakeEth serves the eth namespace for an ERC20 underlying and a vault.
type fakeEth struct {
	mu sync.Mutex

	chainID  int64
	head     uint64
	baseFee  *big.Int
	tip      *big.Int
	estimate uint64
	revert   bool
	// nonceDelay widens the window between reading and using a nonce.
	nonceDelay time.Duration

	allowance *big.Int
	balance   *big.Int
	shares    *big.Int
	name      string

	callBlocks []string
	sent       []*types.Transaction
	receipts   map[common.Hash]*types.Receipt
}

func newFakeEth() *fakeEth {
	return &fakeEth{
		chainID:   5,
		head:      100,
		baseFee:   big.NewInt(10),
		tip:       big.NewInt(2),
		estimate:  50000,
		allowance: big.NewInt(0),
		balance:   big.NewInt(100),
		shares:    big.NewInt(200),
		name:      "Test Token",
		receipts:  map[common.Hash]*types.Receipt{},
	}
}

func (f *fakeEth) ChainId() *hexutil.Big { //nolint:revive // rpc method name
	return (*hexutil.Big)(big.NewInt(f.chainID))
}

func (f *fakeEth) BlockNumber() hexutil.Uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return hexutil.Uint64(f.head)
}

func (f *fakeEth) Call(args callArgs, block string) (hexutil.Bytes, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callBlocks = append(f.callBlocks, block)

	data := args.payload()
	contract := chain.ERC20ABI
	if *args.To == vaultAddr {
		contract = chain.VaultABI
	}

	method, err := contract.MethodById(data[:4])
	if err != nil {
		return nil, err
	}

	in, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}

	var out any
	switch method.Name {
	case "name":
		out = f.name
	case "allowance":
		out = f.allowance
	case "balanceOf":
		out = f.balance
		if *args.To == vaultAddr {
			out = f.shares
		}
	case "previewRedeem":
		shares, _ := in[0].(*big.Int)
		out = new(big.Int).Mul(shares, big.NewInt(2))
	default:
		return nil, errors.Errorf("unexpected call %s", method.Name)
	}

	return method.Outputs.Pack(out)
}

func (f *fakeEth) EstimateGas(_ callArgs, _ *string) (hexutil.Uint64, error) {
	if f.revert {
		return 0, errors.New("execution reverted: ERC20: insufficient allowance")
	}
	return hexutil.Uint64(f.estimate), nil
}

func (f *fakeEth) MaxPriorityFeePerGas() *hexutil.Big {
	return (*hexutil.Big)(f.tip)
}

func (f *fakeEth) GetBlockByNumber(_ string, _ bool) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return &types.Header{
		Number:     new(big.Int).SetUint64(f.head),
		Difficulty: big.NewInt(0),
		BaseFee:    f.baseFee,
	}, nil
}

func (f *fakeEth) GetTransactionCount(_ common.Address, _ string) hexutil.Uint64 {
	f.mu.Lock()
	count, delay := len(f.sent), f.nonceDelay
	f.mu.Unlock()

	time.Sleep(delay)
	return hexutil.Uint64(count)
}

func (f *fakeEth) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)

	return tx.Hash(), nil
}

func (f *fakeEth) GetTransactionReceipt(hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	receipt, ok := f.receipts[hash]
	if !ok {
		return nil, nil //nolint:nilnil // null means not found
	}
	return receipt, nil
}

func (f *fakeEth) mine(hash common.Hash, status uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.head++
	f.receipts[hash] = &types.Receipt{
		Type:        types.DynamicFeeTxType,
		Status:      status,
		TxHash:      hash,
		GasUsed:     21000,
		BlockNumber: new(big.Int).SetUint64(f.head),
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(f.head)),
		Logs:        []*types.Log{},
	}
}

func (f *fakeEth) advance(blocks uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head += blocks
}

func newTestClient(t *testing.T, eth *fakeEth) *chain.RPCClient {
	t.Helper()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", eth))

	client := chain.NewRPCClientWithClients(rpc.DialInProc(server))
	t.Cleanup(func() {
		client.Close()
		server.Stop()
	})

	return client
}

type keySigner struct {
	key *ecdsa.PrivateKey
}

func newKeySigner(t *testing.T) *keySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &keySigner{key: key}
}

func (s *keySigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

func (s *keySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}
