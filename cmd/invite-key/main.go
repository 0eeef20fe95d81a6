// Package main provides a one-shot utility for invite grant key generation.
//
// It emits the ed25519 keypair used to sign and verify family invite grants.
package main

import (
	"os"

	"github.com/keepsakehq/keepsake/internal/platform/config"
	"github.com/keepsakehq/keepsake/internal/tools/invitekey"
)

func main() {
	if err := invitekey.Run(os.Stdout, nil); err != nil {
		config.Exitf("generate invite grant key: %v", err)
	}
}
