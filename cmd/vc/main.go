// Copyright (c) 2024 The vc Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Command vc drives the x86 back end: `vc emit` lowers a built-in demo IR
// program to assembly, `vc selftest` runs the spec.md section 8 end-to-end
// scenarios and reports PASS/FAIL. Styled after z80opt's cobra command tree
// (cmd/z80opt/main.go), with subcommands reading their own flags instead of
// a shared global config.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vc/compile/codegen"
	"vc/compile/licm"
	"vc/internal/scenarios"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "vc",
		Short: "vc — an x86 back end for a three-address IR",
	}

	var bits int
	var syntaxName string
	var licmEnabled bool

	emitCmd := &cobra.Command{
		Use:   "emit",
		Short: "lower the built-in demo IR program to assembly",
		RunE: func(cmd *cobra.Command, args []string) error {
			syntax, err := parseSyntax(syntaxName)
			if err != nil {
				return err
			}
			if bits != 32 && bits != 64 {
				return fmt.Errorf("--bits must be 32 or 64, got %d", bits)
			}

			fn := scenarios.Demo()
			if licmEnabled {
				licm.Run(fn)
			}
			alloc := scenarios.DemoAllocation(fn)

			out := codegen.Emit(fn, alloc, bits, syntax)
			fmt.Print(out)
			return nil
		},
	}
	emitCmd.Flags().IntVar(&bits, "bits", 64, "target word size: 32 or 64")
	emitCmd.Flags().StringVar(&syntaxName, "syntax", "att", "assembly syntax: att or intel")
	emitCmd.Flags().BoolVar(&licmEnabled, "licm", true, "run loop-invariant code motion before emitting")

	selftestCmd := &cobra.Command{
		Use:   "selftest",
		Short: "run the end-to-end scenarios and report PASS/FAIL",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := scenarios.Run()

			failCount := 0
			for _, r := range results {
				if len(r.Errs) == 0 {
					fmt.Printf("[PASS] %s\n", r.Name)
					continue
				}
				failCount++
				fmt.Printf("[FAIL] %s\n", r.Name)
				for _, err := range r.Errs {
					fmt.Printf("       %s\n", err)
				}
			}

			if failCount > 0 {
				return fmt.Errorf("%d/%d scenarios failed", failCount, len(results))
			}
			fmt.Printf("%d/%d scenarios passed\n", len(results), len(results))
			return nil
		},
	}

	rootCmd.AddCommand(emitCmd, selftestCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseSyntax(name string) (codegen.Syntax, error) {
	switch name {
	case "att":
		return codegen.ATT, nil
	case "intel":
		return codegen.Intel, nil
	default:
		return 0, fmt.Errorf("unknown syntax %q, want att or intel", name)
	}
}
