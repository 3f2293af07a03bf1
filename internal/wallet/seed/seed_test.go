package seed_test

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/yield-vault/internal/wallet/seed"
)

//nolint:dupword
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestFromMnemonicVector(t *testing.T) {
	// BIP39 reference vector with passphrase "TREZOR"
	got := seed.FromMnemonic(testMnemonic, "TREZOR")
	assert.Equal(t,
		"c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04",
		hex.EncodeToString(got))
}

func TestFromMnemonicNormalizesWhitespace(t *testing.T) {
	assert.Equal(t, seed.FromMnemonic(testMnemonic, ""), seed.FromMnemonic("  "+testMnemonic+"\n", ""))
}

func TestManager(t *testing.T) {
	m := seed.NewManager()
	assert.False(t, m.IsInitialized())

	_, err := m.DeriveKey("m/44'/60'/0'/0/0")
	require.Error(t, err)

	m.Initialize(testMnemonic, "")
	assert.True(t, m.IsInitialized())

	key, err := m.DeriveKey("m/44'/60'/0'/0/0")
	require.NoError(t, err)
	assert.NotNil(t, key)

	m.Clear()
	assert.False(t, m.IsInitialized())
}
