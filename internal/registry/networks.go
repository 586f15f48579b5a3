package registry

import "sort"

// Network describes one chain flavor a node can run. CookieDir is empty for
// mainnet, which keeps its auth cookie at the datadir root.
type Network struct {
	Name      string
	RPCPort   uint16
	CookieDir string
}

var networksByName = map[string]Network{
	"main":    {Name: "main", RPCPort: 8332, CookieDir: ""},
	"test":    {Name: "test", RPCPort: 18332, CookieDir: "testnet3"},
	"signet":  {Name: "signet", RPCPort: 38332, CookieDir: "signet"},
	"regtest": {Name: "regtest", RPCPort: 18443, CookieDir: "regtest"},
}

func LookupNetwork(name string) (Network, bool) {
	value, ok := networksByName[name]
	return value, ok
}

func NetworkNames() []string {
	names := make([]string, 0, len(networksByName))
	for name := range networksByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
