package vault

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github/chapool/yield-vault/internal/api"
	"github/chapool/yield-vault/internal/api/httperrors"
	"github/chapool/yield-vault/internal/chain"
	"github/chapool/yield-vault/internal/txlog"
	"github/chapool/yield-vault/internal/util"
)

type ReceiptLog struct {
	Index    uint              `json:"index"`
	Contract common.Address    `json:"contract"`
	Event    string            `json:"event"`
	Fields   map[string]string `json:"fields"`
}

type GetReceiptResponse struct {
	TxHash      common.Hash  `json:"txHash"`
	Success     bool         `json:"success"`
	BlockNumber uint64       `json:"blockNumber"`
	GasUsed     uint64       `json:"gasUsed"`
	Logs        []ReceiptLog `json:"logs"`
	Ledger      *txlog.Entry `json:"ledger,omitempty"`
}

func GetReceiptRoute(s *api.Server) *echo.Route {
	return s.Router.APIV1Vault.GET("/receipts/:hash", getReceiptHandler(s))
}

// Returns the receipt of a transaction with its token and vault events
// decoded, plus the ledger entry if the ledger is enabled.
func getReceiptHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		raw, err := hexutil.Decode(c.Param("hash"))
		if err != nil || len(raw) != common.HashLength {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.HTTPErrorTypeGeneric, "Invalid transaction hash.")
		}
		hash := common.BytesToHash(raw)

		receipt, err := s.Chain.TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) {
				return httperrors.NewHTTPError(http.StatusNotFound, httperrors.HTTPErrorTypeGeneric, "Transaction receipt not found.")
			}
			log.Error().Err(err).Str("tx_hash", hash.Hex()).Msg("Failed to get transaction receipt")
			return err
		}

		decoded, err := chain.DecodeLogs(receipt, s.Contracts.Vault)
		if err != nil {
			log.Warn().Err(err).Str("tx_hash", hash.Hex()).Msg("Failed to decode receipt logs")
		}

		response := &GetReceiptResponse{
			TxHash:  hash,
			Success: receipt.Status == 1,
			GasUsed: receipt.GasUsed,
			Logs:    make([]ReceiptLog, 0, len(decoded)),
		}
		if receipt.BlockNumber != nil {
			response.BlockNumber = receipt.BlockNumber.Uint64()
		}

		for _, l := range decoded {
			fields := make(map[string]string, len(l.Fields))
			for k, v := range l.Fields {
				fields[k] = fmt.Sprint(v)
			}
			response.Logs = append(response.Logs, ReceiptLog{
				Index:    l.Index,
				Contract: l.Contract,
				Event:    l.Event,
				Fields:   fields,
			})
		}

		if s.Ledger != nil {
			entry, err := s.Ledger.FindByHash(ctx, hash)
			if err != nil {
				log.Warn().Err(err).Str("tx_hash", hash.Hex()).Msg("Failed to look up ledger entry")
			}
			response.Ledger = entry
		}

		return c.JSON(http.StatusOK, response)
	}
}
