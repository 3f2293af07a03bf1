package vault

import (
	"fmt"
	"io"

	"github/chapool/yield-vault/internal/i18n"
	"github/chapool/yield-vault/internal/vault"
	"github/chapool/yield-vault/internal/vault/workflow"
	"golang.org/x/text/language"
)

// printer writes localized workflow output.
type printer struct {
	out  io.Writer
	i18n *i18n.Service
	lang language.Tag
}

func (p printer) line(msgID string, data ...i18n.Data) {
	fmt.Fprintln(p.out, p.i18n.Translate(p.lang, msgID, data...))
}

func (p printer) snapshot(snapshot *vault.Snapshot) {
	if snapshot == nil {
		p.line("vault.notConnected")
		return
	}

	p.line("vault.balance.underlying", i18n.Data{"Name": snapshot.UnderlyingName, "Amount": snapshot.UnderlyingBalance.String()})
	p.line("vault.allowance", i18n.Data{"Amount": snapshot.Allowance.String()})
	p.line("vault.balance.shares", i18n.Data{"Amount": snapshot.VaultShareBalance.String()})
	p.line("vault.balance.previewed", i18n.Data{"Name": snapshot.UnderlyingName, "Amount": snapshot.PreviewedAssets.String()})
}

func (p printer) action(txKind vault.TxKind, kind vault.Kind, amount vault.Amount, confirmations uint64) {
	msgID := "vault.action." + string(kind)
	if txKind == vault.TxApprove {
		msgID = "vault.action.approve"
	}

	fmt.Fprintf(p.out, "%s %s\n", p.i18n.Translate(p.lang, msgID), amount.String())
	fmt.Fprintln(p.out, p.i18n.TranslatePlural(p.lang, "vault.confirmations", int(confirmations), //nolint:gosec
		i18n.Data{"Count": confirmations}))
}

func (p printer) failure(st workflow.State) {
	if st.LastFailure == nil {
		return
	}

	message := ""
	if st.LastFailure.Err != nil {
		message = st.LastFailure.Err.Error()
	}
	p.line("vault.failure."+string(st.LastFailure.Kind), i18n.Data{"Message": message})
}
