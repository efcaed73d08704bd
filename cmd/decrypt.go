package cmd

import (
	"os"

	"github.com/arcanum-sh/arcanum/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt <ciphertext> [<plaintext>]",
	Short: "Decrypt a file with your identity",
	Long: `Decrypt an encrypted file using your SSH or age identity. The plaintext is
written to stdout when the destination is omitted or '-'. When the file is
managed by arcanum.toml, its configured permissions and ownership are
applied to the output.

Examples:
  arcanum decrypt secrets/production.env.age > .env.production
  arcanum decrypt secrets/production.env.age .env.production`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting decrypt command")

		output := "-"
		if len(args) == 2 {
			output = args[1]
		}

		// No spinner when streaming plaintext to stdout.
		if output == "-" {
			result, err := workflows.Decrypt(cmd.Context(), workflows.DecryptOptions{
				Input:        args[0],
				Output:       "-",
				IdentityRefs: identityRefs,
			})
			if err != nil {
				Logger.Errorf("Decrypt failed: %v", err)
				return err
			}
			_, err = os.Stdout.Write(result.Plaintext)
			return err
		}

		spinner, cleanup := startSpinner("Decrypting...", verbose)
		defer cleanup()

		result, err := workflows.Decrypt(cmd.Context(), workflows.DecryptOptions{
			Input:        args[0],
			Output:       output,
			IdentityRefs: identityRefs,
		})
		if err != nil {
			Logger.Errorf("Decrypt failed: %v", err)
			if msg, ok := friendlyFailure(err); ok {
				spinner.FinalMSG = msg
				return nil
			}
			return err
		}

		Logger.Infof("Decrypt command completed successfully")
		finalMessage := color.GreenString("✓") + " Decrypted to " + color.YellowString(result.Output)
		if result.SpecApplied {
			finalMessage += "\n" + color.CyanString("→") + " Applied the permissions configured in " +
				color.YellowString("arcanum.toml")
		}
		spinner.FinalMSG = finalMessage
		return nil
	},
}
