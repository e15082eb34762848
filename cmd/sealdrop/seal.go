package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/SealDrop/assets"
	"github.com/dharsanguruparan/SealDrop/internal/record"
	"github.com/dharsanguruparan/SealDrop/internal/seal"
	"github.com/dharsanguruparan/SealDrop/internal/verifypage"
)

type sealOptions struct {
	meta        string
	baseURL     string
	outDir      string
	jobs        int
	bindContent bool
	brandMark   string
	title       string
}

type sealed struct {
	in, out, id string
}

func newSealCmd(root *rootOptions) *cobra.Command {
	opts := &sealOptions{}
	cmd := &cobra.Command{
		Use:   "seal FILE...",
		Short: "Seal one or more PDF documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := root.keyPair()
			if err != nil {
				return err
			}
			if !pair.CanSign() {
				return errors.New("sealing needs --private-key")
			}
			fields, err := record.ParseFields([]byte(opts.meta))
			if err != nil {
				return fmt.Errorf("parse --meta: %w", err)
			}
			brand, err := assets.BrandMark(opts.brandMark)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(opts.outDir, 0o750); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			renderer := verifypage.NewRenderer(brand)
			if opts.title != "" {
				renderer.Title = opts.title
			}
			sealer := seal.New(renderer, root.logger())
			sealer.BindContent = opts.bindContent

			outputs, err := outputPaths(opts.outDir, args)
			if err != nil {
				return err
			}
			jobs := opts.jobs
			if jobs < 1 {
				jobs = 1
			}
			results := make([]sealed, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(jobs)
			for i, in := range args {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					doc, err := os.ReadFile(in)
					if err != nil {
						return fmt.Errorf("read %s: %w", in, err)
					}
					docFields := fields.Clone()
					docFields.Set(record.KeyOriginalFilename, filepath.Base(in))
					res, err := sealer.Seal(doc, docFields, pair.Private, opts.baseURL)
					if err != nil {
						return fmt.Errorf("seal %s: %w", in, err)
					}
					out := outputs[i]
					if err := os.WriteFile(out, res.Document, 0o644); err != nil {
						return fmt.Errorf("write %s: %w", out, err)
					}
					results[i] = sealed{in: in, out: out, id: res.DocumentID}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (id %s, verify at %s)\n", r.in, r.out, r.id, seal.VerifyURL(opts.baseURL, r.id))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.meta, "meta", "{}", "JSON object of metadata fields, e.g. '{\"uploader\":\"alice\"}'")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080/v/", "Prefix of the verification URL")
	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", ".", "Directory for sealed copies")
	cmd.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "Documents sealed concurrently")
	cmd.Flags().BoolVar(&opts.bindContent, "bind-content", false, "Also sign a digest of the document text")
	cmd.Flags().StringVar(&opts.brandMark, "brand-mark", "", "PNG shown on the verification page (default: built-in)")
	cmd.Flags().StringVar(&opts.title, "title", "", "Verification page title")
	return cmd
}

// outputPaths maps each input to its sealed copy in outDir. Two inputs with
// the same base name would write the same file, so they are rejected.
func outputPaths(outDir string, inputs []string) ([]string, error) {
	outs := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		out := filepath.Join(outDir, seal.DownloadName(filepath.Base(in)))
		if prev, ok := seen[out]; ok {
			return nil, fmt.Errorf("%s and %s would both be written to %s", prev, in, out)
		}
		seen[out] = in
		outs[i] = out
	}
	return outs, nil
}
