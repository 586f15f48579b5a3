package generate

import (
	"context"
	"encoding/json"

	clierr "github.com/bitcli/bitcli/internal/errors"
	"github.com/bitcli/bitcli/internal/model"
	"github.com/bitcli/bitcli/internal/registry"
	"github.com/bitcli/bitcli/internal/rpc"
)

const defaultNumBlocks = "1"

// Dispatcher drives the client-side generate flow: a fresh address from the
// routed wallet, then blocks mined to it on the same wallet route.
type Dispatcher struct {
	client *rpc.Client
}

func New(client *rpc.Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// Run mines to a fresh address. Arguments are validated before any request goes out.
func (d *Dispatcher) Run(ctx context.Context, args []string) (*model.GenerateResult, error) {
	nblocks, maxtries, err := parseArgs(args)
	if err != nil {
		return nil, err
	}

	reply, err := d.client.Call(ctx, "getnewaddress", nil)
	if err != nil {
		return nil, err
	}
	var address string
	if err := json.Unmarshal(reply, &address); err != nil {
		return nil, clierr.Wrap(clierr.KindInternal, "decode getnewaddress reply", err)
	}

	params := []any{nblocks, address}
	if maxtries != nil {
		params = append(params, maxtries)
	}
	reply, err = d.client.Call(ctx, "generatetoaddress", params)
	if err != nil {
		return nil, err
	}
	var blocks []string
	if err := json.Unmarshal(reply, &blocks); err != nil {
		return nil, clierr.Wrap(clierr.KindInternal, "decode generatetoaddress reply", err)
	}

	return &model.GenerateResult{Address: address, Blocks: blocks}, nil
}

func parseArgs(args []string) (nblocks, maxtries json.RawMessage, err error) {
	if len(args) > 2 {
		return nil, nil, clierr.New(clierr.KindUsage, "too many arguments (maximum 2 for nblocks and maxtries)")
	}
	nblocks = json.RawMessage(defaultNumBlocks)
	if len(args) > 0 {
		raw, err := registry.JSONValue(args[0])
		if err != nil {
			return nil, nil, err
		}
		var n int64
		if json.Unmarshal(raw, &n) != nil || n <= 0 {
			return nil, nil, clierr.New(clierr.KindUsage,
				"the first argument (number of blocks to generate, default: 1) must be an integer value greater than zero")
		}
		nblocks = raw
	}
	if len(args) == 2 {
		raw, err := registry.JSONValue(args[1])
		if err != nil {
			return nil, nil, err
		}
		maxtries = raw
	}
	return nblocks, maxtries, nil
}
