// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/tally/commitment"
	"github.com/spf13/cobra"
)

// commitmentCommand computes the hash a voter submits in the commit phase
func commitmentCommand() *cobra.Command {
	var candidate string
	var nonce uint64
	var verify string
	cmd := &cobra.Command{
		Use:   "commitment",
		Short: "Compute or check a vote commitment hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			if candidate == "" {
				return errors.New("--candidate is required")
			}
			if verify != "" {
				expected, err := commitment.ParseDigest(verify)
				if err != nil {
					return fmt.Errorf("invalid commitment: %w", err)
				}
				if !commitment.Verify(expected, candidate, nonce) {
					return errors.New("commitment does not match")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "commitment matches")
				return nil
			}
			fmt.Fprintln(
				cmd.OutOrStdout(),
				commitment.Hash(candidate, nonce).String(),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&candidate, "candidate", "", "candidate name to commit to")
	cmd.Flags().Uint64Var(&nonce, "nonce", 0, "secret nonce")
	cmd.Flags().StringVar(&verify, "verify", "", "hex commitment to check instead of printing one")
	return cmd
}
