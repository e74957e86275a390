// Copyright (C) 2025 veilnet
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Command veilnetd runs one node of the federated chat mesh: the HTTP
// client API, the websocket peer link, and the bootstrap/presence/sweep
// background loops, wired together the way cmd/test-server wires the
// teacher's demo handshake, but through cobra subcommands instead of a
// flat main().
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "veilnetd",
	Short: "veilnetd runs a federated end-to-end-encrypted chat network node",
	Long: `veilnetd hosts local users, routes direct and public-channel
messages, relays file transfers, and federates with other veilnetd nodes
over a signed bootstrap/welcome/announce handshake.`,
}

func main() {
	// A missing .env is not an error; it just means configuration comes
	// entirely from the environment and/or --config.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
