// Package wallet resolves the signing account the vault workflows submit from.
package wallet

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/wallet/address"
	"github/chapool/yield-vault/internal/wallet/keystore"
	"github/chapool/yield-vault/internal/wallet/seed"
	"github/chapool/yield-vault/internal/wallet/signer"
	"golang.org/x/term"
)

var ErrNoKeyConfigured = errors.New("no wallet key configured: set WALLET_PRIVATE_KEY, WALLET_MNEMONIC or WALLET_KEYSTORE_FILE")

// PasswordPrompt asks the user for a secret.
type PasswordPrompt func(prompt string) (string, error)

// ChainIDSource reports the chain id of the connected node.
type ChainIDSource interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// LoadSigner builds the signer from cfg. Precedence is private key, then
// mnemonic, then keystore file. prompt is used when the keystore password is
// not configured and may be nil.
func LoadSigner(cfg config.Wallet, prompt PasswordPrompt) (*signer.Signer, error) {
	log := log.With().Str("component", "wallet_init").Logger()

	var (
		s   *signer.Signer
		err error
	)

	switch {
	case cfg.PrivateKey != "":
		log.Debug().Msg("Using private key from environment")
		s, err = signer.FromHex(cfg.PrivateKey)
	case cfg.Mnemonic != "":
		log.Debug().Str("path", derivationPath(cfg)).Msg("Deriving key from mnemonic")
		s, err = fromMnemonic(cfg.Mnemonic, cfg.MnemonicPassword, derivationPath(cfg))
	case cfg.KeystoreFile != "":
		log.Debug().Str("file", cfg.KeystoreFile).Msg("Decrypting keystore")
		s, err = fromKeystore(cfg, prompt)
	default:
		return nil, ErrNoKeyConfigured
	}
	if err != nil {
		return nil, err
	}

	if err := VerifyAccount(s.Address(), cfg.Account); err != nil {
		return nil, err
	}

	log.Info().Str("account", s.Address().Hex()).Msg("Wallet initialized")

	return s, nil
}

// VerifyAccount checks the derived address against the configured one, if any.
// A mismatch usually means a wrong password or derivation path.
func VerifyAccount(derived common.Address, expected string) error {
	if expected == "" {
		return nil
	}

	if !common.IsHexAddress(expected) {
		return errors.Errorf("configured account %q is not an address", expected)
	}

	if common.HexToAddress(expected) != derived {
		return errors.Errorf("derived account %s does not match configured account %s", derived.Hex(), expected)
	}

	return nil
}

// ResolveChainContext queries the node's chain id and checks it against the
// expected one (0 accepts any chain).
func ResolveChainContext(ctx context.Context, source ChainIDSource, account common.Address, expectedChainID int64) (vault.ChainContext, error) {
	chainID, err := source.ChainID(ctx)
	if err != nil {
		return vault.ChainContext{}, errors.Wrap(err, "failed to resolve chain id")
	}

	if expectedChainID != 0 && chainID.Int64() != expectedChainID {
		return vault.ChainContext{}, errors.Errorf("connected to chain %d, expected %d", chainID.Int64(), expectedChainID)
	}

	return vault.ChainContext{ChainID: chainID.Int64(), Account: account}, nil
}

func fromMnemonic(mnemonic, password, path string) (*signer.Signer, error) {
	m := seed.NewManager()
	m.Initialize(mnemonic, password)
	defer m.Clear()

	key, err := m.DeriveKey(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive private key")
	}

	return signer.New(key)
}

func fromKeystore(cfg config.Wallet, prompt PasswordPrompt) (*signer.Signer, error) {
	ks, err := keystore.ReadFile(cfg.KeystoreFile)
	if err != nil {
		return nil, err
	}

	password := cfg.KeystorePassword
	if password == "" {
		if prompt == nil {
			return nil, errors.New("keystore password not configured")
		}

		password, err = prompt("Enter keystore password: ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to read password")
		}
	}

	secret, err := keystore.Decrypt(ks, password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrypt keystore (invalid password?)")
	}

	return fromMnemonic(strings.TrimSpace(string(secret)), cfg.MnemonicPassword, derivationPath(cfg))
}

func derivationPath(cfg config.Wallet) string {
	if cfg.DerivationPath == "" {
		return address.DefaultDerivationPath
	}
	return cfg.DerivationPath
}

// TerminalPrompt reads a password from stdin without echo.
//
//nolint:forbidigo // Password input requires direct terminal I/O
func TerminalPrompt(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec
	if err != nil {
		return "", errors.Wrap(err, "failed to read password from terminal")
	}

	fmt.Fprintln(os.Stderr)

	return string(passwordBytes), nil
}
