package chain

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// DecodedLog is a receipt log matched against the ERC20 or vault ABI.
type DecodedLog struct {
	Index    uint
	Contract common.Address
	Event    string
	Fields   map[string]any
}

// DecodeLogs decodes the Transfer/Approval/Deposit/Withdraw logs of receipt.
// Logs of unknown events are skipped. The vault ABI wins on topic collisions
// only for logs emitted by vaultAddr.
func DecodeLogs(receipt *types.Receipt, vaultAddr common.Address) ([]DecodedLog, error) {
	if receipt == nil {
		return nil, nil
	}

	decoded := make([]DecodedLog, 0, len(receipt.Logs))
	for _, entry := range receipt.Logs {
		if entry == nil || len(entry.Topics) == 0 {
			continue
		}

		contractABI := ERC20ABI
		if entry.Address == vaultAddr {
			contractABI = VaultABI
		}

		event, err := contractABI.EventByID(entry.Topics[0])
		if err != nil && contractABI == VaultABI {
			// share transfers of the vault use the ERC20 events
			event, err = ERC20ABI.EventByID(entry.Topics[0])
		}
		if err != nil {
			continue
		}

		fields, err := unpackLog(event, entry)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s log #%d", event.Name, entry.Index)
		}

		decoded = append(decoded, DecodedLog{
			Index:    entry.Index,
			Contract: entry.Address,
			Event:    event.Name,
			Fields:   fields,
		})
	}

	return decoded, nil
}

func unpackLog(event *abi.Event, entry *types.Log) (map[string]any, error) {
	fields := make(map[string]any, len(event.Inputs))

	if len(entry.Data) > 0 {
		if err := event.Inputs.UnpackIntoMap(fields, entry.Data); err != nil {
			return nil, err
		}
	}

	var indexed abi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(entry.Topics)-1 != len(indexed) {
		return nil, errors.Errorf("expected %d indexed topics, got %d", len(indexed), len(entry.Topics)-1)
	}

	if err := abi.ParseTopicsIntoMap(fields, indexed, entry.Topics[1:]); err != nil {
		return nil, err
	}

	return fields, nil
}
