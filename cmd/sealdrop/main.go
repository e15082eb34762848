package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/internal/keys"
	"github.com/dharsanguruparan/SealDrop/pkg/logger"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	privateKey string
	publicKey  string
	verbose    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "sealdrop: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "sealdrop",
		Short: "Seal and verify PDF documents",
		Long: `sealdrop embeds a signed metadata record into PDF documents, appends a page
with a QR code pointing at the public verification URL, and verifies sealed
documents offline against a public key.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.privateKey, "private-key", os.Getenv("SEALDROP_PRIVATE_KEY"), "PEM private key used for sealing")
	cmd.PersistentFlags().StringVar(&opts.publicKey, "public-key", os.Getenv("SEALDROP_PUBLIC_KEY"), "PEM public key used for verification")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log seal stages to stdout")
	cmd.AddCommand(
		newKeygenCmd(),
		newSealCmd(opts),
		newVerifyCmd(opts),
		newPageCmd(),
	)
	return cmd
}

func (o *rootOptions) logger() *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	return logger.Must("development")
}

func (o *rootOptions) keyPair() (*keys.Pair, error) {
	return keys.LoadPair(keys.Source{
		PrivatePath: o.privateKey,
		PublicPath:  o.publicKey,
	})
}
