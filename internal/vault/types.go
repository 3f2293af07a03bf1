package vault

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const base10 = 10

// Kind identifies which vault workflow a controller drives.
type Kind string

const (
	KindDeposit Kind = "deposit"
	KindRedeem  Kind = "redeem"
)

// ParseKind parses the workflow kind used in routes and CLI commands.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindDeposit:
		return KindDeposit, nil
	case KindRedeem:
		return KindRedeem, nil
	default:
		return "", errors.Errorf("unknown workflow kind %q", raw)
	}
}

// TxKind identifies the write operation of a pending transaction.
type TxKind string

const (
	TxApprove TxKind = "approve"
	TxAct     TxKind = "act"
)

// Amount is a non-negative integer amount in token base units.
// The zero value is 0. Amounts are immutable.
type Amount struct {
	v *big.Int
}

// NewAmount copies v into an Amount. Nil and negative values become 0.
func NewAmount(v *big.Int) Amount {
	if v == nil || v.Sign() <= 0 {
		return Amount{}
	}
	return Amount{v: new(big.Int).Set(v)}
}

// AmountFromUint64 returns v as an Amount.
func AmountFromUint64(v uint64) Amount {
	return NewAmount(new(big.Int).SetUint64(v))
}

// ParseAmount parses user input in base units. Anything that is not a
// non-negative base 10 integer is treated as 0.
func ParseAmount(raw string) Amount {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Amount{}
	}

	v, ok := new(big.Int).SetString(raw, base10)
	if !ok {
		return Amount{}
	}

	return NewAmount(v)
}

// Int returns a copy of the amount as *big.Int.
func (a Amount) Int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.v)
}

// Cmp compares a and b like big.Int.Cmp.
func (a Amount) Cmp(b Amount) int {
	return a.Int().Cmp(b.Int())
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool {
	return a.Cmp(b) < 0
}

func (a Amount) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

func (a Amount) String() string {
	return a.Int().String()
}

// MarshalText encodes the amount as a decimal string so JSON never loses precision.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a decimal string. Invalid input decodes as 0.
func (a *Amount) UnmarshalText(text []byte) error {
	*a = ParseAmount(string(text))
	return nil
}

// Snapshot is one consistent read of the contract state relevant to a workflow.
// A Snapshot is never modified after it has been published.
type Snapshot struct {
	Allowance         Amount    `json:"allowance"`
	UnderlyingName    string    `json:"underlyingName"`
	UnderlyingBalance Amount    `json:"underlyingBalance"`
	VaultShareBalance Amount    `json:"vaultShareBalance"`
	PreviewedAssets   Amount    `json:"previewedAssets"`
	BlockNumber       uint64    `json:"blockNumber"`
	ReadAt            time.Time `json:"readAt"`
}

// ChainContext is the connected account and active chain of the wallet.
type ChainContext struct {
	ChainID int64
	Account common.Address
}

// Contracts holds the addresses a workflow talks to.
type Contracts struct {
	Vault      common.Address
	Underlying common.Address
}
