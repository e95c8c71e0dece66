package cmd

import (
	"fmt"
	"os"
	"strings"

	dotenv "github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wormhole-demo/vaa-verifier/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vaa-verifier",
	Short: "Verify, decode and replay-guard Wormhole VAAs",
	Long: `Verifies guardian signatures on Wormhole VAAs against configured guardian sets,
decodes token bridge TransferWithPayload payloads, and records each accepted message
exactly once so that a replayed VAA is rejected.`,
	SilenceUsage: true,
}

func init() {
	// Tentatively load .env file
	_ = dotenv.Load()

	rootCmd.PersistentFlags().Bool(
		"debug",
		false,
		"Enables debug output.")

	rootCmd.PersistentFlags().Bool(
		"json",
		false,
		"Enables structured logging in JSON format.")

	rootCmd.PersistentFlags().String(
		"config",
		"",
		"Config file (yaml, json or toml) with guardian sets and filters")

	rootCmd.PersistentFlags().String(
		"guardian-key",
		"",
		"Single devnet guardian address (hex); used when no guardian sets are configured")

	rootCmd.PersistentFlags().String(
		"replay-dir",
		"",
		"Directory for posted records; empty keeps them in memory")

	rootCmd.PersistentFlags().String(
		"emitter-address",
		"",
		"Emitter address to accept (hex); empty accepts all")

	rootCmd.PersistentFlags().IntSlice(
		"chain-ids",
		nil,
		"Emitter chain IDs to accept; empty accepts all")

	rootCmd.PersistentFlags().Bool(
		"require-payload-id",
		false,
		"Expect the token bridge payload id byte (3) before the transfer")

	rootCmd.PersistentFlags().String(
		"wormhole-program",
		"",
		"Wormhole core program on Solana used to derive PostedVAA addresses")

	// Bind flags to viper for env variable support
	viper.BindPFlag("guardian_key", rootCmd.PersistentFlags().Lookup("guardian-key"))
	viper.BindPFlag("replay.dir", rootCmd.PersistentFlags().Lookup("replay-dir"))
	viper.BindPFlag("emitter_address", rootCmd.PersistentFlags().Lookup("emitter-address"))
	viper.BindPFlag("emitter_chains", rootCmd.PersistentFlags().Lookup("chain-ids"))
	viper.BindPFlag("require_payload_id", rootCmd.PersistentFlags().Lookup("require-payload-id"))
	viper.BindPFlag("wormhole_program", rootCmd.PersistentFlags().Lookup("wormhole-program"))

	cobra.OnInitialize(initConfig)
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("vaa_verifier")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	if path, _ := rootCmd.PersistentFlags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to read config %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

func printBanner() {
	colours := []string{
		"\033[38;5;81m", // Cyan
		"\033[38;5;75m", // Light Blue
		"\033[38;5;69m", // Sky Blue
		"\033[38;5;63m", // Dodger Blue
		"\033[38;5;57m", // Deep Sky Blue
	}
	banner := `
 _   _  ___   ___     _   _          _  __ _
| | | |/ _ \ / _ \   | | | |___ _ __(_)/ _(_) ___ _ __
| | | | |_| | |_| |  | | | / _ \ '__| | |_| |/ _ \ '__|
 \ V /|  _  |  _  |   \ V /  __/ |  | |  _| |  __/ |
  \_/ |_| |_|_| |_|    \_/ \___|_|  |_|_| |_|\___|_|
`
	lines := strings.Split(strings.Trim(banner, "\n"), "\n")
	for i, line := range lines {
		fmt.Printf("%s%s\n", colours[i%len(colours)], line)
	}

	fmt.Println("\033[0m") // Reset
}

func configureLogging(cmd *cobra.Command, _ []string) *zap.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	json, _ := cmd.Flags().GetBool("json")

	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.Development = true
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if json {
		config.Encoding = "json"
	} else {
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	// Command output goes to stdout; keep logs off it.
	config.OutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		// Fallback to a basic logger if config fails
		logger, _ = zap.NewProduction()
	}

	zap.ReplaceGlobals(logger)

	return logger
}
