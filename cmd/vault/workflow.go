package vault

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/config"
	"github/chapool/yield-vault/internal/util/command"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/orchestrator"
	"github/chapool/yield-vault/internal/vault/workflow"
)

const (
	vaultKindDeposit = vault.KindDeposit
	vaultKindRedeem  = vault.KindRedeem
)

type workflowArgs struct {
	Kind   vault.Kind
	Amount string
	Max    bool
	Lang   string
}

func newWorkflow(kind vault.Kind) *cobra.Command {
	short := "Approves the amount if needed and deposits it into the vault"
	if kind == vault.KindRedeem {
		short = "Redeems vault shares for the underlying asset"
	}

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s [amount]", kind),
		Short: short,
		Long: fmt.Sprintf(`%s

The amount is given in base units of the token. Use --max to %s the full balance.
The command waits until every submitted transaction is confirmed.`, short, kind),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := command.BindFlags(cmd)
			if err != nil {
				return err
			}

			wargs := workflowArgs{
				Kind: kind,
				Max:  v.GetBool(maxFlag),
				Lang: v.GetString(langFlag),
			}
			if len(args) > 0 {
				wargs.Amount = args[0]
			}
			if wargs.Amount == "" && !wargs.Max {
				return errors.New("either an amount or --max is required")
			}

			cfg := config.DefaultServiceConfigFromEnv()
			if err := command.PromptKeystorePassword(&cfg); err != nil {
				return err
			}

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				return runWorkflow(ctx, cmd.OutOrStdout(), s, wargs)
			})
		},
	}

	cmd.Flags().Bool(maxFlag, false, "Use the full balance as amount.")
	addLangFlag(cmd)

	return cmd
}

// runWorkflow drives one open/approve/act/close cycle of a workflow to completion.
func runWorkflow(ctx context.Context, out io.Writer, s *api.Server, args workflowArgs) error {
	p := printer{out: out, i18n: s.I18n, lang: s.I18n.ParseLang(args.Lang)}

	controller, err := s.Workflows.Get(args.Kind)
	if err != nil {
		return err
	}

	if _, err := s.Reader.Refresh(ctx); err != nil {
		p.line("vault.failure.read_failure")
		return err
	}

	controller.Open()
	defer controller.Close()

	var st workflow.State
	if args.Max {
		// the maximum is committed as entered amount so a partial allowance can be raised
		if st, err = controller.SetMaxAmount(); err == nil {
			st, err = controller.SetAmount(st.RequestedAmount.String())
		}
	} else {
		st, err = controller.SetAmount(args.Amount)
	}
	if err != nil {
		return err
	}
	if st.RequestedAmount.IsZero() {
		return errors.Errorf("nothing to %s: amount is 0", args.Kind)
	}

	p.snapshot(st.Snapshot)

	confirmations := s.Config.Workflow.ConfirmationThreshold
	if confirmations == 0 {
		confirmations = orchestrator.ConfirmationThreshold(s.ChainContext.ChainID)
	}

	if args.Kind == vault.KindDeposit && st.Snapshot.Allowance.LessThan(st.RequestedAmount) {
		p.action(vault.TxApprove, args.Kind, st.RequestedAmount, confirmations)

		if st, err = submitAndWait(ctx, controller, controller.Approve); err != nil {
			p.failure(st)
			return err
		}
	}

	p.action(vault.TxAct, args.Kind, st.RequestedAmount, confirmations)

	if st, err = submitAndWait(ctx, controller, controller.Act); err != nil {
		p.failure(st)
		return err
	}

	p.line("vault.phase." + string(st.Phase))
	p.snapshot(st.Snapshot)

	return nil
}

// submitAndWait submits via submit and blocks until the transaction settled.
// A failed confirmation is returned as error together with the state holding it.
func submitAndWait(ctx context.Context, controller *workflow.Controller, submit func(context.Context) (workflow.State, error)) (workflow.State, error) {
	updates := make(chan workflow.State, 1)
	unsubscribe := controller.Subscribe(func(st workflow.State) {
		// keep only the latest state
		for {
			select {
			case updates <- st:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	defer unsubscribe()

	st, err := submit(ctx)
	if err != nil {
		return controller.State(), err
	}

	for st.Phase != workflow.PhaseIdle || st.Submitting {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case st = <-updates:
		}
	}

	if st.LastFailure != nil {
		return st, st.LastFailure
	}

	return st, nil
}
