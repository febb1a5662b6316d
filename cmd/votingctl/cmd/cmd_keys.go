package cmd

import (
	"fmt"

	"github.com/tokenized/voting-contract/internal/platform/config"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	bip32 "github.com/tyler-smith/go-bip32"
)

const (
	FlagCount   = "count"
	FlagStart   = "start"
	FlagNetwork = "network"
)

var cmdKeygen = &cobra.Command{
	Use:   "keygen",
	Short: "Generates keys and their addresses",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) != 0 {
			return errors.New("Incorrect argument count")
		}

		params := network(c)
		count, _ := c.Flags().GetUint32(FlagCount)

		for i := uint32(0); i < count; i++ {
			key, err := btcec.NewPrivateKey(btcec.S256())
			if err != nil {
				return errors.Wrap(err, "generate key")
			}

			wif, err := btcutil.NewWIF(key, params, true)
			if err != nil {
				return errors.Wrap(err, "encode key")
			}

			address, err := addressForPublicKey(key.PubKey().SerializeCompressed(), params)
			if err != nil {
				return err
			}

			fmt.Printf("WIF (Private) : %s\n", wif.String())
			fmt.Printf("Address : %s\n", address.EncodeAddress())
		}

		return nil
	},
}

var cmdDerive = &cobra.Command{
	Use:   "derive [xkey]",
	Short: "Derives voter addresses from an extended key",
	Long:  "Derives voter addresses from an extended key. A new master key is generated when none is given.",
	RunE: func(c *cobra.Command, args []string) error {
		if len(args) > 1 {
			return errors.New("Incorrect argument count")
		}

		params := network(c)
		count, _ := c.Flags().GetUint32(FlagCount)
		start, _ := c.Flags().GetUint32(FlagStart)

		var key *bip32.Key
		var err error
		if len(args) == 1 {
			key, err = bip32.B58Deserialize(args[0])
			if err != nil {
				return errors.Wrap(err, "parse extended key")
			}
		} else {
			seed, err := bip32.NewSeed()
			if err != nil {
				return errors.Wrap(err, "generate seed")
			}

			key, err = bip32.NewMasterKey(seed)
			if err != nil {
				return errors.Wrap(err, "generate master key")
			}

			fmt.Printf("XKey : %s\n", key.B58Serialize())
		}

		addresses, err := deriveAddresses(key, start, count, params)
		if err != nil {
			return err
		}

		for i, address := range addresses {
			fmt.Printf("%d : %s\n", start+uint32(i), address.EncodeAddress())
		}

		return nil
	},
}

// network returns the chain parameters of the --network flag.
func network(c *cobra.Command) *chaincfg.Params {
	value, _ := c.Flags().GetString(FlagNetwork)
	return config.NewChainParams(value)
}

// deriveAddresses returns the P2PKH addresses of count children of key
// starting at index start.
func deriveAddresses(key *bip32.Key, start, count uint32,
	params *chaincfg.Params) ([]btcutil.Address, error) {

	result := make([]btcutil.Address, 0, count)
	for i := uint32(0); i < count; i++ {
		child, err := key.NewChildKey(start + i)
		if err != nil {
			return nil, errors.Wrapf(err, "derive child %d", start+i)
		}

		address, err := addressForPublicKey(child.PublicKey().Key, params)
		if err != nil {
			return nil, err
		}

		result = append(result, address)
	}

	return result, nil
}

func addressForPublicKey(publicKey []byte, params *chaincfg.Params) (btcutil.Address, error) {
	address, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(publicKey), params)
	if err != nil {
		return nil, errors.Wrap(err, "create address")
	}
	return address, nil
}

func init() {
	cmdKeygen.Flags().Uint32(FlagCount, 1, "number of keys")
	cmdKeygen.Flags().String(FlagNetwork, "mainnet", "address network")

	cmdDerive.Flags().Uint32(FlagCount, 10, "number of addresses")
	cmdDerive.Flags().Uint32(FlagStart, 0, "first child index")
	cmdDerive.Flags().String(FlagNetwork, "mainnet", "address network")
}
