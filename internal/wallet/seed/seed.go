package seed

import (
	"crypto/ecdsa"
	"crypto/sha512"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github/chapool/yield-vault/internal/wallet/address"
	"golang.org/x/crypto/pbkdf2"
)

// BIP39: seed = PBKDF2(mnemonic, "mnemonic" + password, 2048, 64, SHA512)
const (
	pbkdf2Iterations = 2048
	pbkdf2KeyLength  = 64
)

// FromMnemonic converts a mnemonic to its BIP39 seed. The word list is not validated.
func FromMnemonic(mnemonic string, password string) []byte {
	normalized := strings.Join(strings.Fields(mnemonic), " ")

	return pbkdf2.Key(
		[]byte(normalized),
		[]byte("mnemonic"+password),
		pbkdf2Iterations,
		pbkdf2KeyLength,
		sha512.New,
	)
}

// Manager keeps a seed in memory and derives keys from it.
type Manager struct {
	mu   sync.RWMutex
	seed []byte
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Initialize(mnemonic string, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clear()
	m.seed = FromMnemonic(mnemonic, password)
}

func (m *Manager) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.seed != nil
}

// DeriveKey derives the private key at path.
func (m *Manager) DeriveKey(path string) (*ecdsa.PrivateKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.seed == nil {
		return nil, errors.New("seed not initialized")
	}

	return address.DerivePrivateKey(m.seed, path)
}

// Clear zeroes the seed.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clear()
}

func (m *Manager) clear() {
	for i := range m.seed {
		m.seed[i] = 0
	}
	m.seed = nil
}
