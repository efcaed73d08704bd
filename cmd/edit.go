package cmd

import (
	"github.com/arcanum-sh/arcanum/internal/ui"
	"github.com/arcanum-sh/arcanum/internal/workflows"

	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <ciphertext>",
	Short: "Edit an encrypted file in place",
	Long: `Decrypt a managed file into a private scratch file, open it in your editor
($VISUAL, then $EDITOR, then vi), and re-encrypt it when the content
changed. The scratch plaintext is removed on every exit path. Saving the
file unchanged leaves the ciphertext untouched.

Examples:
  arcanum edit secrets/production.env.age
  EDITOR=nano arcanum edit secrets/token.age`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting edit command")

		// The editor needs the terminal; no spinner while it runs.
		result, err := workflows.Edit(cmd.Context(), workflows.EditOptions{
			Path:         args[0],
			IdentityRefs: identityRefs,
		})
		if err != nil {
			Logger.Errorf("Edit failed: %v", err)
			if msg, ok := friendlyFailure(err); ok {
				cmd.Println(msg)
				return nil
			}
			return err
		}

		if !result.Changed {
			Logger.Infof("Edit command completed: no changes")
			cmd.Println(ui.Info.Sprint("→") + " No changes; " + ui.Path.Sprint(result.Path) + " left untouched")
			return nil
		}

		Logger.Infof("Edit command completed successfully")
		cmd.Println(ui.Success.Sprint("✓") + " Re-encrypted " + ui.Path.Sprint(result.Path))
		return nil
	},
}
