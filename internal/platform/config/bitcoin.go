package config

import (
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
)

// NewChainParams returns chain configuration parameters
// based on the supplied string.
//
// - mainnet = main network
// - testnet = test network
// - regtest = local regression test network
func NewChainParams(network string) *chaincfg.Params {
	switch strings.ToLower(network) {
	case "testnet":
		return &chaincfg.TestNet3Params
	case "regtest":
		return &chaincfg.RegressionNetParams
	}

	return &chaincfg.MainNetParams
}

// DecodeAddress parses an address and checks it is encoded for the network.
func DecodeAddress(s string, params *chaincfg.Params) (btcutil.Address, error) {
	address, err := btcutil.DecodeAddress(strings.TrimSpace(s), params)
	if err != nil {
		return nil, errors.Wrapf(err, "decode address %q", s)
	}

	if !address.IsForNet(params) {
		return nil, errors.Errorf("address %s is not for %s", s, params.Name)
	}

	return address, nil
}

// DecodeAddresses parses a list of addresses with DecodeAddress.
func DecodeAddresses(list []string, params *chaincfg.Params) ([]btcutil.Address, error) {
	result := make([]btcutil.Address, 0, len(list))
	for _, s := range list {
		address, err := DecodeAddress(s, params)
		if err != nil {
			return nil, err
		}
		result = append(result, address)
	}

	return result, nil
}
