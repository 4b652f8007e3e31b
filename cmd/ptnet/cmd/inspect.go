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

	"github.com/jt05610/ptnet/analysis"
	"github.com/spf13/cobra"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the places, transitions and incidence matrix of a net",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, true, func(_ context.Context, s *session) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "net %s\n", s.net.Name())
			fmt.Fprintln(out, "places:")
			for i, p := range s.net.Places() {
				fmt.Fprintf(out, "  %d %s %d\n", i, p.Name, p.Initial)
			}
			fmt.Fprintln(out, "transitions:")
			for _, name := range s.net.Transitions() {
				d, err := s.net.DeltaFor(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  %s %v\n", name, d)
			}
			fmt.Fprintln(out, "incidence:")
			return analysis.Write(out, s.net)
		})
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
