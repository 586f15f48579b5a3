package registry

import (
	"encoding/json"
	"strings"

	clierr "github.com/bitcli/bitcli/internal/errors"
)

// Parameter positions that carry structured JSON rather than a plain string,
// with the name each position answers to in named-argument form.
type paramSpec struct {
	method string
	index  int
	name   string
}

var jsonParams = []paramSpec{
	{"addmultisigaddress", 0, "nrequired"},
	{"addmultisigaddress", 1, "keys"},
	{"combinepsbt", 0, "txs"},
	{"converttopsbt", 1, "permitsigdata"},
	{"converttopsbt", 2, "iswitness"},
	{"createmultisig", 0, "nrequired"},
	{"createmultisig", 1, "keys"},
	{"createpsbt", 0, "inputs"},
	{"createpsbt", 1, "outputs"},
	{"createpsbt", 2, "locktime"},
	{"createpsbt", 3, "replaceable"},
	{"createrawtransaction", 0, "inputs"},
	{"createrawtransaction", 1, "outputs"},
	{"createrawtransaction", 2, "locktime"},
	{"createrawtransaction", 3, "replaceable"},
	{"createwallet", 1, "disable_private_keys"},
	{"createwallet", 2, "blank"},
	{"createwallet", 4, "avoid_reuse"},
	{"createwallet", 5, "descriptors"},
	{"createwallet", 6, "load_on_startup"},
	{"decoderawtransaction", 1, "iswitness"},
	{"deriveaddresses", 1, "range"},
	{"disconnectnode", 1, "nodeid"},
	{"echojson", 0, "arg0"},
	{"echojson", 1, "arg1"},
	{"echojson", 2, "arg2"},
	{"echojson", 3, "arg3"},
	{"echojson", 4, "arg4"},
	{"echojson", 5, "arg5"},
	{"echojson", 6, "arg6"},
	{"echojson", 7, "arg7"},
	{"echojson", 8, "arg8"},
	{"echojson", 9, "arg9"},
	{"estimatesmartfee", 0, "conf_target"},
	{"finalizepsbt", 1, "extract"},
	{"fundrawtransaction", 1, "options"},
	{"fundrawtransaction", 2, "iswitness"},
	{"generateblock", 1, "transactions"},
	{"generatetoaddress", 0, "nblocks"},
	{"generatetoaddress", 2, "maxtries"},
	{"generatetodescriptor", 0, "num_blocks"},
	{"generatetodescriptor", 2, "maxtries"},
	{"getbalance", 1, "minconf"},
	{"getbalance", 2, "include_watchonly"},
	{"getbalance", 3, "avoid_reuse"},
	{"getblock", 1, "verbosity"},
	{"getblockhash", 0, "height"},
	{"getblockheader", 1, "verbose"},
	{"getblocktemplate", 0, "template_request"},
	{"getchaintxstats", 0, "nblocks"},
	{"getmempoolancestors", 1, "verbose"},
	{"getmempooldescendants", 1, "verbose"},
	{"getnetworkhashps", 0, "nblocks"},
	{"getnetworkhashps", 1, "height"},
	{"getnodeaddresses", 0, "count"},
	{"getrawmempool", 0, "verbose"},
	{"getrawmempool", 1, "mempool_sequence"},
	{"getrawtransaction", 1, "verbose"},
	{"getreceivedbyaddress", 1, "minconf"},
	{"getreceivedbylabel", 1, "minconf"},
	{"gettransaction", 1, "include_watchonly"},
	{"gettransaction", 2, "verbose"},
	{"gettxout", 1, "n"},
	{"gettxout", 2, "include_mempool"},
	{"gettxoutproof", 0, "txids"},
	{"importaddress", 2, "rescan"},
	{"importaddress", 3, "p2sh"},
	{"importdescriptors", 0, "requests"},
	{"importmulti", 0, "requests"},
	{"importmulti", 1, "options"},
	{"importprivkey", 2, "rescan"},
	{"importpubkey", 2, "rescan"},
	{"joinpsbts", 0, "txs"},
	{"keypoolrefill", 0, "newsize"},
	{"listreceivedbyaddress", 0, "minconf"},
	{"listreceivedbyaddress", 1, "include_empty"},
	{"listreceivedbyaddress", 2, "include_watchonly"},
	{"listreceivedbylabel", 0, "minconf"},
	{"listreceivedbylabel", 1, "include_empty"},
	{"listreceivedbylabel", 2, "include_watchonly"},
	{"listsinceblock", 1, "target_confirmations"},
	{"listsinceblock", 2, "include_watchonly"},
	{"listsinceblock", 3, "include_removed"},
	{"listtransactions", 1, "count"},
	{"listtransactions", 2, "skip"},
	{"listtransactions", 3, "include_watchonly"},
	{"listunspent", 0, "minconf"},
	{"listunspent", 1, "maxconf"},
	{"listunspent", 2, "addresses"},
	{"listunspent", 3, "include_unsafe"},
	{"listunspent", 4, "query_options"},
	{"loadwallet", 1, "load_on_startup"},
	{"lockunspent", 0, "unlock"},
	{"lockunspent", 1, "transactions"},
	{"logging", 0, "include"},
	{"logging", 1, "exclude"},
	{"prioritisetransaction", 1, "dummy"},
	{"prioritisetransaction", 2, "fee_delta"},
	{"rescanblockchain", 0, "start_height"},
	{"rescanblockchain", 1, "stop_height"},
	{"scantxoutset", 1, "scanobjects"},
	{"sendmany", 1, "amounts"},
	{"sendmany", 2, "minconf"},
	{"sendmany", 4, "subtractfeefrom"},
	{"sendmany", 5, "replaceable"},
	{"sendmany", 6, "conf_target"},
	{"sendrawtransaction", 1, "maxfeerate"},
	{"sendtoaddress", 1, "amount"},
	{"sendtoaddress", 4, "subtractfeefromamount"},
	{"sendtoaddress", 5, "replaceable"},
	{"sendtoaddress", 6, "conf_target"},
	{"sendtoaddress", 8, "avoid_reuse"},
	{"setban", 2, "bantime"},
	{"setban", 3, "absolute"},
	{"sethdseed", 0, "newkeypool"},
	{"setmocktime", 0, "timestamp"},
	{"setnetworkactive", 0, "state"},
	{"settxfee", 0, "amount"},
	{"signrawtransactionwithkey", 1, "privkeys"},
	{"signrawtransactionwithkey", 2, "prevtxs"},
	{"signrawtransactionwithwallet", 1, "prevtxs"},
	{"stop", 0, "wait"},
	{"testmempoolaccept", 0, "rawtxs"},
	{"testmempoolaccept", 1, "maxfeerate"},
	{"unloadwallet", 1, "load_on_startup"},
	{"upgradewallet", 0, "version"},
	{"verifychain", 0, "checklevel"},
	{"verifychain", 1, "nblocks"},
	{"waitforblock", 1, "timeout"},
	{"waitforblockheight", 0, "height"},
	{"waitforblockheight", 1, "timeout"},
	{"waitfornewblock", 0, "timeout"},
	{"walletcreatefundedpsbt", 0, "inputs"},
	{"walletcreatefundedpsbt", 1, "outputs"},
	{"walletcreatefundedpsbt", 2, "locktime"},
	{"walletcreatefundedpsbt", 3, "options"},
	{"walletcreatefundedpsbt", 4, "bip32derivs"},
	{"walletpassphrase", 1, "timeout"},
	{"walletprocesspsbt", 1, "sign"},
	{"walletprocesspsbt", 3, "bip32derivs"},
}

var (
	jsonByPosition = map[string]map[int]bool{}
	jsonByName     = map[string]map[string]bool{}
)

func init() {
	for _, spec := range jsonParams {
		if jsonByPosition[spec.method] == nil {
			jsonByPosition[spec.method] = map[int]bool{}
			jsonByName[spec.method] = map[string]bool{}
		}
		jsonByPosition[spec.method][spec.index] = true
		jsonByName[spec.method][spec.name] = true
	}
}

// JSONValue validates arg as one JSON value, preserving the raw text.
func JSONValue(arg string) (json.RawMessage, error) {
	if !json.Valid([]byte(arg)) {
		return nil, clierr.Newf(clierr.KindParse, "Error parsing JSON: %s", arg)
	}
	return json.RawMessage(arg), nil
}

func ConvertPositional(method string, index int, arg string) (any, error) {
	if !jsonByPosition[method][index] {
		return arg, nil
	}
	value, err := JSONValue(arg)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// ConvertNamed splits one name=value pair; the name decides conversion, so
// named and positional spellings of the same call wire identically.
func ConvertNamed(method, pair string) (string, any, error) {
	eq := strings.Index(pair, "=")
	if eq < 0 {
		return "", nil, clierr.Newf(clierr.KindUsage, "No '=' in named argument '%s'", pair)
	}
	name, raw := pair[:eq], pair[eq+1:]
	if !jsonByName[method][name] {
		return name, raw, nil
	}
	value, err := JSONValue(raw)
	if err != nil {
		return "", nil, err
	}
	return name, value, nil
}
