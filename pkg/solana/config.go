package solana

import "strings"

type Environment string

const (
	EnvironmentLocal Environment = "http://localhost:8899"
	EnvironmentDev   Environment = "https://api.devnet.solana.com"
	EnvironmentTest  Environment = "https://api.testnet.solana.com"
	EnvironmentProd  Environment = "https://api.mainnet-beta.solana.com"
)

// ResolveEndpoint expands a cluster moniker, as accepted by the Solana CLI's
// --url flag, into its public RPC endpoint. Anything else is returned as is.
func ResolveEndpoint(endpoint string) string {
	switch strings.ToLower(endpoint) {
	case "l", "localhost", "localnet":
		return string(EnvironmentLocal)
	case "d", "devnet":
		return string(EnvironmentDev)
	case "t", "testnet":
		return string(EnvironmentTest)
	case "m", "mainnet", "mainnet-beta":
		return string(EnvironmentProd)
	}
	return endpoint
}
