package cmd

import (
	logger "github.com/arcanum-sh/arcanum/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose      bool
	debug        bool
	identityRefs []string
	Logger       logger.Logger

	RootCmd = &cobra.Command{
		Use:   "arcanum",
		Short: "Arcanum - encrypted secrets that live in your repository",
		Long: `Arcanum keeps secret files encrypted at rest so they can be committed to
version control, and decrypts them on demand with your SSH or age identity.

Each managed file is encrypted to its own recipient set, configured in
arcanum.toml. Admin recipients can always decrypt every file.

Run 'arcanum help <command>' for more details on a specific command.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing arcanum with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	RootCmd.PersistentFlags().StringArrayVarP(&identityRefs, "identity", "i", nil,
		"identity file to decrypt with (repeatable; defaults to ~/.ssh/id_ed25519 and ~/.ssh/id_rsa)")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(encryptCmd)
	RootCmd.AddCommand(decryptCmd)
	RootCmd.AddCommand(editCmd)
	RootCmd.AddCommand(rekeyCmd)
	RootCmd.AddCommand(mergeCmd)
	RootCmd.AddCommand(cacheCmd)
	RootCmd.AddCommand(statusCmd)
}

// Helper functions for testing

// GetRootCmd returns the RootCmd for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}

// ResetGlobalState resets all global variables to their default values for testing.
func ResetGlobalState() {
	verbose = false
	debug = false
	identityRefs = nil
	rekeyAll = false
	rekeyWorkers = 0
	initForce = false
	initAdmins = nil
	mergeSource = ""
	mergeOutput = ""
	statusPath = ""
}

// SetLogger sets the logger for testing.
func SetLogger(l logger.Logger) {
	Logger = l
}
