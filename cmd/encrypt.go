package cmd

import (
	"fmt"

	"github.com/arcanum-sh/arcanum/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <plaintext> <ciphertext>",
	Short: "Encrypt a file to its configured recipient set",
	Long: `Encrypt a plaintext file to the recipients configured for the target in
arcanum.toml. The target must be a managed source; admin recipients are
always included. Pass '-' as the plaintext to read from stdin.

Examples:
  arcanum encrypt .env.production secrets/production.env.age
  cat token.txt | arcanum encrypt - secrets/token.age`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting encrypt command")
		spinner, cleanup := startSpinner("Encrypting...", verbose)
		defer cleanup()

		result, err := workflows.Encrypt(cmd.Context(), workflows.EncryptOptions{
			Input:  args[0],
			Output: args[1],
		})
		if err != nil {
			Logger.Errorf("Encrypt failed: %v", err)
			if msg, ok := friendlyFailure(err); ok {
				spinner.FinalMSG = msg
				return nil
			}
			return err
		}

		Logger.Infof("Encrypt command completed successfully")
		spinner.FinalMSG = color.GreenString("✓") + " Encrypted to " + color.YellowString(result.Output) +
			fmt.Sprintf(" for %d recipient(s)\n", result.Recipients) +
			color.CyanString("→") + " The encrypted file is safe to commit to version control"
		return nil
	},
}
