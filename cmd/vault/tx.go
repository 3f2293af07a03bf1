package vault

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/chain"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/util/command"
	"github/chapool/yield-vault/internal/vault"
)

func newTx() *cobra.Command {
	return &cobra.Command{
		Use:   "tx <hash>",
		Short: "Prints the receipt of a transaction with its token and vault events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := parseHash(args[0])
			if err != nil {
				return err
			}

			cfg := config.DefaultServiceConfigFromEnv()
			if err := command.PromptKeystorePassword(&cfg); err != nil {
				return err
			}

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				return runTx(ctx, cmd.OutOrStdout(), s, hash)
			})
		},
	}
}

func newHistory() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [deposit|redeem]",
		Short: "Lists the transactions recorded in the ledger, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := command.BindFlags(cmd)
			if err != nil {
				return err
			}

			var kind vault.Kind
			if len(args) > 0 {
				if kind, err = vault.ParseKind(args[0]); err != nil {
					return err
				}
			}

			cfg := config.DefaultServiceConfigFromEnv()
			if !cfg.Database.Enabled {
				return errors.New("the transaction ledger is disabled, set PGENABLED=true")
			}
			if err := command.PromptKeystorePassword(&cfg); err != nil {
				return err
			}

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				return runHistory(ctx, cmd.OutOrStdout(), s, kind, v.GetInt(limitFlag))
			})
		},
	}

	cmd.Flags().Int(limitFlag, 20, "Maximum number of transactions to list.")

	return cmd
}

func parseHash(raw string) (common.Hash, error) {
	b, err := hexutil.Decode(raw)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, errors.Errorf("invalid transaction hash %q", raw)
	}
	return common.BytesToHash(b), nil
}

func runTx(ctx context.Context, out io.Writer, s *api.Server, hash common.Hash) error {
	receipt, err := s.Chain.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return errors.Errorf("transaction %s not found or still pending", hash.Hex())
		}
		return errors.Wrap(err, "failed to get transaction receipt")
	}

	status := "failed"
	if receipt.Status == 1 {
		status = "success"
	}

	fmt.Fprintf(out, "Transaction Hash: %s\n", hash.Hex())
	fmt.Fprintf(out, "Chain ID: %d\n", s.ChainContext.ChainID)
	if receipt.BlockNumber != nil {
		fmt.Fprintf(out, "Block Number: %s\n", receipt.BlockNumber.String())
	}
	fmt.Fprintf(out, "Status: %s\n", status)
	fmt.Fprintf(out, "Gas Used: %d\n", receipt.GasUsed)

	logs, err := chain.DecodeLogs(receipt, s.Contracts.Vault)
	if err != nil {
		fmt.Fprintf(out, "Failed to decode logs: %v\n", err)
	}
	for _, l := range logs {
		fmt.Fprintf(out, "  [%d] %s %s\n", l.Index, l.Event, l.Contract.Hex())

		keys := make([]string, 0, len(l.Fields))
		for k := range l.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "      %s: %v\n", k, l.Fields[k])
		}
	}

	if s.Ledger == nil {
		return nil
	}

	entry, err := s.Ledger.FindByHash(ctx, hash)
	if err != nil {
		return errors.Wrap(err, "failed to look up ledger entry")
	}
	if entry == nil {
		fmt.Fprintln(out, "Ledger: not recorded")
		return nil
	}

	fmt.Fprintf(out, "Ledger: %s %s %s (%s)\n", entry.Workflow, entry.TxKind, entry.Amount, entry.Status)

	return nil
}

func runHistory(ctx context.Context, out io.Writer, s *api.Server, kind vault.Kind, limit int) error {
	entries, err := s.Ledger.List(ctx, kind, limit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No transactions recorded.")
		return nil
	}

	for _, e := range entries {
		hash := e.TxHash
		if hash == "" {
			hash = "-"
		}
		fmt.Fprintf(out, "%s  %-8s %-8s %-10s %s  %s\n", e.SubmittedAt.Format("2006-01-02 15:04:05"), e.Workflow, e.TxKind, e.Status, e.Amount, hash)
	}

	return nil
}
