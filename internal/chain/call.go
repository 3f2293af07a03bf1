package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// Uint256 is the Go type the abi package uses for uint256 arguments.
type Uint256 = *big.Int

// Call is one contract method invocation.
type Call struct {
	Contract common.Address
	ABI      *abi.ABI
	Method   string
	Args     []any
}

func (c Call) Pack() ([]byte, error) {
	if c.ABI == nil {
		return nil, errors.Errorf("call %s: missing ABI", c.Method)
	}

	data, err := c.ABI.Pack(c.Method, c.Args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to pack %s", c.Method)
	}

	return data, nil
}

// Unpack decodes the first return value of the call.
func (c Call) Unpack(data []byte) (any, error) {
	values, err := c.ABI.Unpack(c.Method, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unpack %s", c.Method)
	}
	if len(values) == 0 {
		return nil, errors.Errorf("%s returned no values", c.Method)
	}

	return values[0], nil
}

func (c Call) String() string {
	return c.Contract.Hex() + "." + c.Method
}

// ReadBatch executes calls as one JSON-RPC batch of eth_call, all pinned to
// block. Results are the decoded first return values in call order.
func (c *RPCClient) ReadBatch(ctx context.Context, block uint64, calls []Call) ([]any, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	client, err := c.getClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get RPC client")
	}

	blockArg := hexutil.EncodeUint64(block)
	raw := make([]hexutil.Bytes, len(calls))
	batch := make([]rpc.BatchElem, len(calls))

	for i, call := range calls {
		data, err := call.Pack()
		if err != nil {
			return nil, err
		}

		batch[i] = rpc.BatchElem{
			Method: "eth_call",
			Args: []any{
				map[string]any{
					"to":    call.Contract,
					"input": hexutil.Bytes(data),
				},
				blockArg,
			},
			Result: &raw[i],
		}
	}

	if err := client.Client().BatchCallContext(ctx, batch); err != nil {
		return nil, errors.Wrap(err, "batch eth_call failed")
	}

	results := make([]any, len(calls))
	for i, elem := range batch {
		if elem.Error != nil {
			return nil, errors.Wrapf(elem.Error, "eth_call %s at block %d", calls[i], block)
		}

		value, err := calls[i].Unpack(raw[i])
		if err != nil {
			return nil, err
		}
		results[i] = value
	}

	return results, nil
}
