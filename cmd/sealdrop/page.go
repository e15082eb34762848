package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/SealDrop/assets"
	"github.com/dharsanguruparan/SealDrop/internal/verifypage"
)

func newPageCmd() *cobra.Command {
	var (
		id        string
		out       string
		brandMark string
	)
	cmd := &cobra.Command{
		Use:   "page URL",
		Short: "Render a standalone verification page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brand, err := assets.BrandMark(brandMark)
			if err != nil {
				return err
			}
			page, err := verifypage.NewRenderer(brand).Render(args[0], id, time.Now())
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, page, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "preview", "Document id printed in the footer")
	cmd.Flags().StringVarP(&out, "out", "o", "verification.pdf", "Output path")
	cmd.Flags().StringVar(&brandMark, "brand-mark", "", "PNG shown on the page (default: built-in)")
	return cmd
}
