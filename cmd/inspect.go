package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wormhole-demo/vaa-verifier/internal/payload"
	"github.com/wormhole-demo/vaa-verifier/internal/pipeline"
	"github.com/wormhole-demo/vaa-verifier/internal/vaa"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <vaa>",
	Short: "Parse a VAA and decode its payload without verifying signatures",
	Long: `Parses a VAA and prints its digest, message id, signer indices, the Solana
PostedVAA account it would be posted to, and the decoded transfer payload.
No guardian set is needed and nothing is recorded.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	logger := configureLogging(cmd, args)
	defer logger.Sync()

	raw, err := readBlob(args[0])
	if err != nil {
		return err
	}
	v, err := vaa.Parse(raw)
	if err != nil {
		return err
	}
	pipeline.LogVAAFull(logger, v)

	view, err := newVAAView(v, viper.GetString("wormhole_program"))
	if err != nil {
		return err
	}

	var t *payload.TransferWithPayload
	if viper.GetBool("require_payload_id") {
		t, err = payload.DecodeWithID(v.Body.Payload)
	} else {
		t, err = payload.Decode(v.Body.Payload)
	}
	if err != nil {
		view.PayloadError = err.Error()
	} else {
		view.Transfer = newTransferView(t)
	}
	return printJSON(cmd.OutOrStdout(), view)
}
