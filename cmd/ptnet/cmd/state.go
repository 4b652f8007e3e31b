/*
Copyright © 2024 Jonathan Taylor <jonrtaylor12@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current state of a machine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, true, func(ctx context.Context, s *session) error {
			m, err := s.machine(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "seq: %d\n", m.Seq())
			state := m.CurrentState()
			for i, p := range s.net.Places() {
				fmt.Fprintf(out, "%s: %d\n", p.Name, state[i])
			}
			return nil
		})
	},
}

// enabledCmd represents the enabled command
var enabledCmd = &cobra.Command{
	Use:   "enabled",
	Short: "List the transitions that can fire from the current state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, true, func(ctx context.Context, s *session) error {
			m, err := s.machine(ctx)
			if err != nil {
				return err
			}
			for _, name := range m.Available() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(enabledCmd)
}
