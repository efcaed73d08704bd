package cmd

import (
	"fmt"
	"strings"

	"github.com/arcanum-sh/arcanum/internal/secrets"
	"github.com/arcanum-sh/arcanum/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusPath string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether each managed file's encryption is current",
	Long: `Verify every managed file against the derived cache without decrypting
anything. A file needs a rekey when its ciphertext changed outside arcanum
or its recipient set in arcanum.toml no longer matches what it was last
encrypted to.

Examples:
  arcanum status
  arcanum status --file secrets/production.env.age`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting status command")
		spinner, cleanup := startSpinner("Checking managed files...", verbose)
		defer cleanup()

		result, err := workflows.Status(cmd.Context(), workflows.StatusOptions{Path: statusPath})
		if err != nil && result == nil {
			Logger.Errorf("Status failed: %v", err)
			if msg, ok := friendlyFailure(err); ok {
				spinner.FinalMSG = msg
				return nil
			}
			return err
		}

		if len(result.Files) == 0 {
			spinner.FinalMSG = color.CyanString("→") + " No files are managed yet; add entries to " +
				color.YellowString("arcanum.toml")
			return nil
		}

		var b strings.Builder
		for _, f := range result.Files {
			if f.Err != nil {
				b.WriteString(fmt.Sprintf("%s %s %s\n", color.RedString("✗"), f.Source,
					color.HiBlackString("(%v)", f.Err)))
				continue
			}
			var mark string
			switch f.Status {
			case secrets.StatusUpToDate:
				mark = color.GreenString("✓")
			case secrets.StatusNeedsRekey:
				mark = color.YellowString("!")
			default:
				mark = color.RedString("✗")
			}
			b.WriteString(fmt.Sprintf("%s %s %s\n", mark, f.Source,
				color.HiBlackString("(%s, %d recipients)", f.Status, f.Recipients)))
		}

		stale := result.NeedsAttention()
		if len(stale) == 0 {
			b.WriteString(color.GreenString("✓") + fmt.Sprintf(" All %d managed file(s) are up to date", len(result.Files)))
		} else {
			b.WriteString(color.YellowString("!") + fmt.Sprintf(" %d file(s) need attention\n", len(stale)) +
				color.CyanString("→") + " Run " + color.YellowString("arcanum rekey --all") + " to bring them up to date")
		}

		Logger.Infof("Status command completed")
		spinner.FinalMSG = b.String()
		// A stale single-file query exits non-zero so scripts can gate on it.
		return err
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusPath, "file", "", "restrict the report to one managed file")
}
