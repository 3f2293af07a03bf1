package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const erc20ABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"Approval","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

// vault shares are ERC20 themselves, so balanceOf lives on the vault too
const vaultABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"previewRedeem","stateMutability":"view","inputs":[{"name":"shares","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"deposit","stateMutability":"nonpayable","inputs":[{"name":"assets","type":"uint256"},{"name":"receiver","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"redeem","stateMutability":"nonpayable","inputs":[{"name":"shares","type":"uint256"},{"name":"receiver","type":"address"},{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Deposit","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"owner","type":"address","indexed":true},{"name":"assets","type":"uint256","indexed":false},{"name":"shares","type":"uint256","indexed":false}]},
	{"type":"event","name":"Withdraw","anonymous":false,"inputs":[{"name":"sender","type":"address","indexed":true},{"name":"receiver","type":"address","indexed":true},{"name":"owner","type":"address","indexed":true},{"name":"assets","type":"uint256","indexed":false},{"name":"shares","type":"uint256","indexed":false}]}
]`

var (
	ERC20ABI = mustParseABI(erc20ABIJSON)
	VaultABI = mustParseABI(vaultABIJSON)
)

func mustParseABI(raw string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return &parsed
}

// ERC20 builds calls against an underlying token.
type ERC20 struct {
	Address common.Address
}

func (t ERC20) Name() Call {
	return Call{Contract: t.Address, ABI: ERC20ABI, Method: "name"}
}

func (t ERC20) BalanceOf(account common.Address) Call {
	return Call{Contract: t.Address, ABI: ERC20ABI, Method: "balanceOf", Args: []any{account}}
}

func (t ERC20) Allowance(owner, spender common.Address) Call {
	return Call{Contract: t.Address, ABI: ERC20ABI, Method: "allowance", Args: []any{owner, spender}}
}

func (t ERC20) Approve(spender common.Address, amount Uint256) Call {
	return Call{Contract: t.Address, ABI: ERC20ABI, Method: "approve", Args: []any{spender, amount}}
}

// Vault builds calls against an ERC4626 vault.
type Vault struct {
	Address common.Address
}

func (v Vault) BalanceOf(account common.Address) Call {
	return Call{Contract: v.Address, ABI: VaultABI, Method: "balanceOf", Args: []any{account}}
}

func (v Vault) PreviewRedeem(shares Uint256) Call {
	return Call{Contract: v.Address, ABI: VaultABI, Method: "previewRedeem", Args: []any{shares}}
}

func (v Vault) Deposit(assets Uint256, receiver common.Address) Call {
	return Call{Contract: v.Address, ABI: VaultABI, Method: "deposit", Args: []any{assets, receiver}}
}

func (v Vault) Redeem(shares Uint256, receiver, owner common.Address) Call {
	return Call{Contract: v.Address, ABI: VaultABI, Method: "redeem", Args: []any{shares, receiver, owner}}
}
