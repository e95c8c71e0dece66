package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wormhole-demo/vaa-verifier/internal/instruction"
	"github.com/wormhole-demo/vaa-verifier/internal/pipeline"
)

var execCmd = &cobra.Command{
	Use:   "exec <instruction>...",
	Short: "Execute instruction bytes in order",
	Long: `Executes each instruction (hex, base64, @file or -) in order against one
dispatcher. The first byte selects the instruction:

  00          increment the counter
  01 <vaa>    verify, decode, post, apply and consume a VAA

Execution stops at the first failing instruction.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

type receiptView struct {
	Op      string   `json:"op"`
	Count   uint64   `json:"count,omitempty"`
	Message *vaaView `json:"message,omitempty"`
}

func runExec(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)
	defer logger.Sync()

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
	dispatcher := instruction.NewDispatcher(logger, processor, nil, nil)

	ctx := context.Background()
	for i, arg := range args {
		data, err := readBlob(arg)
		if err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
		receipt, err := dispatcher.Execute(ctx, data)
		if err != nil {
			logger.Error("Instruction failed", zap.Int("index", i), zap.Error(err))
			return fmt.Errorf("instruction %d: %w", i, err)
		}

		view := receiptView{Op: receipt.Op.String(), Count: receipt.Count}
		if receipt.Outcome != nil {
			if view.Message, err = newVAAView(receipt.Outcome.VAA, cfg.WormholeProgram); err != nil {
				return err
			}
			view.Message.State = receipt.Outcome.State.String()
			view.Message.Transfer = newTransferView(receipt.Outcome.Transfer)
		}
		if err := printJSON(cmd.OutOrStdout(), view); err != nil {
			return err
		}
	}
	return nil
}
