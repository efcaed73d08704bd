package cmd

import (
	"errors"

	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
	"github.com/arcanum-sh/arcanum/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	mergeSource string
	mergeOutput string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <base> <ours> <theirs>",
	Short: "Three-way merge two versions of an encrypted file",
	Long: `Decrypt three versions of an encrypted file, merge the plaintexts, and
re-encrypt the result to the file's configured recipient set. Changes that
do not overlap are combined automatically; overlapping changes open your
editor on a conflict-marked working copy.

Designed to back a git merge driver, which passes temporary paths:

  [merge "arcanum"]
      name = arcanum encrypted file merge
      driver = arcanum merge %O %A %B --source %P

Examples:
  arcanum merge base.age ours.age theirs.age --source secrets/production.env.age`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting merge command")

		// The editor may need the terminal; no spinner while resolving.
		result, err := workflows.Merge(cmd.Context(), workflows.MergeOptions{
			Base:           args[0],
			Ours:           args[1],
			Theirs:         args[2],
			Output:         mergeOutput,
			ManifestSource: mergeSource,
			IdentityRefs:   identityRefs,
		})
		if err != nil {
			Logger.Errorf("Merge failed: %v", err)
			if errors.Is(err, kerrors.ErrMergeBaseUnavailable) {
				cmd.Println(color.RedString("✗") + " No common base version exists and no editor could resolve the two sides")
				return err
			}
			if msg, ok := friendlyFailure(err); ok {
				cmd.Println(msg)
				return err
			}
			return err
		}

		Logger.Infof("Merge command completed successfully")
		switch {
		case result.Clean:
			cmd.Println(color.GreenString("✓") + " Merged cleanly into " + color.YellowString(result.Output))
		case result.BaseMissing:
			cmd.Println(color.GreenString("✓") + " Resolved without a common base; wrote " + color.YellowString(result.Output))
		default:
			cmd.Println(color.GreenString("✓") + " Conflicts resolved; wrote " + color.YellowString(result.Output))
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVar(&mergeSource, "source", "", "manifest source path of the file being merged (for VCS temp files)")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "write merged ciphertext here instead of over <ours>")
}
