package chain_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/yield-vault/internal/chain"
)

func TestReadBatchPinsBlock(t *testing.T) {
	eth := newFakeEth()
	eth.allowance = big.NewInt(7)
	client := newTestClient(t, eth)

	underlying := chain.ERC20{Address: underlyingAddr}
	vault := chain.Vault{Address: vaultAddr}

	block, err := client.LatestBlock(t.Context())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), block)

	results, err := client.ReadBatch(t.Context(), block, []chain.Call{
		underlying.Allowance(accountAddr, vaultAddr),
		underlying.Name(),
		underlying.BalanceOf(accountAddr),
		vault.BalanceOf(accountAddr),
		vault.PreviewRedeem(big.NewInt(200)),
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, big.NewInt(7), results[0])
	assert.Equal(t, "Test Token", results[1])
	assert.Equal(t, big.NewInt(100), results[2])
	assert.Equal(t, big.NewInt(200), results[3])
	assert.Equal(t, big.NewInt(400), results[4])

	require.Len(t, eth.callBlocks, 5)
	for _, b := range eth.callBlocks {
		assert.Equal(t, hexutil.EncodeUint64(100), b)
	}
}

func TestReadBatchEmpty(t *testing.T) {
	client := newTestClient(t, newFakeEth())

	results, err := client.ReadBatch(t.Context(), 1, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCallPackRequiresABI(t *testing.T) {
	_, err := chain.Call{Method: "name"}.Pack()
	assert.Error(t, err)
}

func TestChainID(t *testing.T) {
	client := newTestClient(t, newFakeEth())

	id, err := client.ChainID(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(5), id.Int64())
}
