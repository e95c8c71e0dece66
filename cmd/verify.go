package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wormhole-demo/vaa-verifier/internal/pipeline"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <vaa>",
	Short: "Verify, decode and post a single VAA",
	Long: `Runs one VAA (hex, base64, @file or - for stdin) through signature verification,
payload decoding and the replay guard, then prints the decoded transfer as JSON.

With --replay-dir the posted record persists, so verifying the same VAA twice
fails with AlreadyPosted.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Bool(
		"consume",
		false,
		"Mark the posted record consumed after a successful verification")
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)
	defer logger.Sync()

	raw, err := readBlob(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	registry, err := cfg.Registry()
	if err != nil {
		return fmt.Errorf("failed to build guardian registry: %w", err)
	}
	store, err := cfg.ReplayStore(logger)
	if err != nil {
		return fmt.Errorf("failed to open replay store: %w", err)
	}

	processor, err := pipeline.New(logger, cfg.Pipeline(registry, store), nil)
	if err != nil {
		return err
	}

	out, err := processor.Process(context.Background(), raw)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if consume, _ := cmd.Flags().GetBool("consume"); consume {
		if err := out.Consume(); err != nil {
			return fmt.Errorf("failed to mark consumed: %w", err)
		}
		logger.Info("Record consumed", zap.String("digest", out.Posted.Digest().Hex()))
	}

	view, err := newVAAView(out.VAA, cfg.WormholeProgram)
	if err != nil {
		return err
	}
	view.State = out.State.String()
	view.ValidSignatures = out.Verification.Valid
	view.Quorum = out.Verification.Quorum
	view.Transfer = newTransferView(out.Transfer)
	return printJSON(cmd.OutOrStdout(), view)
}
