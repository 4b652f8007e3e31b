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
	"errors"
	"fmt"

	"github.com/jt05610/ptnet"
	"github.com/spf13/cobra"
)

var recordSeq int64

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored records of a machine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			id, err := s.machineID()
			if err != nil {
				return err
			}
			h := s.history(id)
			if recordSeq >= 0 {
				rec, found, err := h.Get(ctx, recordSeq)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("machine %s has no record %d", id, recordSeq)
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec)
				return nil
			}
			records, err := h.All(ctx)
			if err != nil {
				return err
			}
			for _, rec := range records {
				fmt.Fprintln(cmd.OutOrStdout(), rec)
			}
			return nil
		})
	},
}

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Replay a stored history against its net",
	Long: `Replay every stored record of a machine against the net and check that
each stored state is the one the net produces.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, true, func(ctx context.Context, s *session) error {
			id, err := s.machineID()
			if err != nil {
				return err
			}
			records, err := s.history(id).All(ctx)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("machine %s has no history", id)
			}
			state, seq, err := ptnet.Replay(s.net, records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d records, seq %d, state %v\n", len(records), seq, state)
			return nil
		})
	},
}

// machinesCmd represents the machines command
var machinesCmd = &cobra.Command{
	Use:   "machines",
	Short: "List the machines kept in a SQL store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, false, func(ctx context.Context, s *session) error {
			if s.sql == nil {
				return errors.New("machines needs PTNET_STORE=sqlite or postgres")
			}
			ids, err := s.sql.Machines(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int64Var(&recordSeq, "seq", -1, "print only the record with this seq")
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(machinesCmd)
}
