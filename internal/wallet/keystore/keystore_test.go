package keystore_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/yield-vault/internal/wallet/keystore"
)

//nolint:dupword
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestEncryptDecrypt(t *testing.T) {
	ks, err := keystore.Encrypt([]byte(testMnemonic), "password123", keystore.LightScryptParams())
	require.NoError(t, err)
	assert.Equal(t, 3, ks.Version)
	assert.NotEmpty(t, ks.ID)
	assert.NotContains(t, ks.Crypto.Ciphertext, "abandon")

	secret, err := keystore.Decrypt(ks, "password123")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, string(secret))

	_, err = keystore.Decrypt(ks, "wrong-password")
	assert.ErrorIs(t, err, keystore.ErrInvalidPassword)
}

func TestFileRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "vault.json")

	ks, err := keystore.Encrypt([]byte(testMnemonic), "password123", keystore.LightScryptParams())
	require.NoError(t, err)
	require.NoError(t, keystore.WriteFile(path, ks))

	// never overwrite an existing keystore
	assert.Error(t, keystore.WriteFile(path, ks))

	loaded, err := keystore.ReadFile(path)
	require.NoError(t, err)

	secret, err := keystore.Decrypt(loaded, "password123")
	require.NoError(t, err)
	assert.Equal(t, testMnemonic, string(secret))
}

func TestDecryptUnsupported(t *testing.T) {
	ks, err := keystore.Encrypt([]byte("x"), "password123", keystore.LightScryptParams())
	require.NoError(t, err)

	ks.Crypto.KDF = "pbkdf2"
	_, err = keystore.Decrypt(ks, "password123")
	assert.Error(t, err)
}
