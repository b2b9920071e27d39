// Command keygen creates the sender and receiver keypairs used for hunt
// rewards. The sender key goes into SENDER_PRIVATE_KEY and the receiver
// public key into RECEIVER_WALLET_ADDRESS.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/gagliardetto/solana-go"
)

type keypair struct {
	Name       string `json:"name"`
	PublicKey  string `json:"publicKey"`
	PrivateKey []int  `json:"privateKey"`
	Base58     string `json:"base58"`
}

func main() {
	var jsonOutput bool
	flag.BoolVar(&jsonOutput, "json", false, "print keypairs as JSON")
	flag.Parse()

	if err := run(os.Stdout, jsonOutput, "sender", "receiver"); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, jsonOutput bool, names ...string) error {
	pairs := make([]keypair, 0, len(names))
	for _, name := range names {
		key, err := solana.NewRandomPrivateKey()
		if err != nil {
			return fmt.Errorf("generating %s key: %w", name, err)
		}
		raw := make([]int, len(key))
		for i, b := range key {
			raw[i] = int(b)
		}
		pairs = append(pairs, keypair{
			Name:       name,
			PublicKey:  key.PublicKey().String(),
			PrivateKey: raw,
			Base58:     key.String(),
		})
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pairs)
	}

	for _, p := range pairs {
		arr, err := json.Marshal(p.PrivateKey)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s private key (64-byte array): %s\n", p.Name, arr)
		fmt.Fprintf(w, "%s private key (base58): %s\n", p.Name, p.Base58)
		fmt.Fprintf(w, "%s public key: %s\n\n", p.Name, p.PublicKey)
	}
	return nil
}
