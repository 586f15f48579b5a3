package version

import "fmt"

// Overridden through -ldflags at release time.
var (
	CLIName    = "bitcli"
	CLIVersion = "0.1.0"
	Commit     = "unknown"
	BuildDate  = "unknown"
)

// Banner keeps the "RPC client version" marker tooling greps for.
func Banner() string {
	return fmt.Sprintf("%s RPC client version v%s", CLIName, CLIVersion)
}

func Long() string {
	return fmt.Sprintf("%s\n(commit: %s, built: %s)", Banner(), Commit, BuildDate)
}

func UserAgent() string {
	return fmt.Sprintf("%s/%s", CLIName, CLIVersion)
}
