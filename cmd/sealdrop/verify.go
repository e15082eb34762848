package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/SealDrop/internal/seal"
)

func newVerifyCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE...",
		Short: "Verify sealed PDF documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := root.keyPair()
			if err != nil {
				return err
			}
			sealer := &seal.Sealer{Logger: root.logger()}
			out := cmd.OutOrStdout()
			failed := 0
			for _, in := range args {
				doc, err := os.ReadFile(in)
				if err != nil {
					return fmt.Errorf("read %s: %w", in, err)
				}
				rep := sealer.Inspect(doc, pair.Public)
				status := "VALID"
				if !rep.Valid() {
					status = "INVALID"
					failed++
				}
				fmt.Fprintf(out, "%s: %s (signature %s", in, status, rep.Outcome)
				if rep.ContentBound {
					if rep.ContentMatch {
						fmt.Fprint(out, ", content unchanged")
					} else {
						fmt.Fprint(out, ", content changed")
					}
				}
				fmt.Fprintln(out, ")")
				for _, f := range rep.Record.Fields() {
					fmt.Fprintf(out, "  %s: %s\n", f.Key, f.Value)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed verification", failed, len(args))
			}
			return nil
		},
	}
}
