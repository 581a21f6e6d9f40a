package chaincfg

import "github.com/pkg/errors"

// ErrUnknownNetwork is returned by ParamsByName for an unrecognized network
// name.
var ErrUnknownNetwork = errors.New("unknown network")

// ParamsByName resolves the --testnet/--regtest/mainnet CLI selection to its
// Params.
func ParamsByName(name string) (*Params, error) {
	switch name {
	case "mainnet", "":
		return &MainNetParams, nil
	case "testnet3":
		return &TestNet3Params, nil
	case "regtest":
		return &RegressionNetParams, nil
	default:
		return nil, errors.Wrap(ErrUnknownNetwork, name)
	}
}
