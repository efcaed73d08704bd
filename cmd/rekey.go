package cmd

import (
	"fmt"
	"strings"

	"github.com/arcanum-sh/arcanum/internal/ui"
	"github.com/arcanum-sh/arcanum/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	rekeyAll     bool
	rekeyWorkers int
)

var rekeyCmd = &cobra.Command{
	Use:   "rekey [<ciphertext>]",
	Short: "Re-encrypt files to their current recipient sets",
	Long: `Decrypt and re-encrypt managed files so their ciphertext matches the
recipient sets currently configured in arcanum.toml. Run this after adding
or removing recipients. With --all, every managed file is rekeyed; one
file's failure never blocks the rest.

Examples:
  arcanum rekey secrets/production.env.age
  arcanum rekey --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting rekey command")

		if !rekeyAll && len(args) == 0 {
			return fmt.Errorf("provide a file to rekey or pass --all")
		}

		spinner, cleanup := startSpinner("Rekeying...", verbose)
		defer cleanup()

		opts := workflows.RekeyOptions{
			All:          rekeyAll,
			IdentityRefs: identityRefs,
			Workers:      rekeyWorkers,
		}
		if len(args) == 1 {
			opts.Path = args[0]
		}

		result, err := workflows.Rekey(cmd.Context(), opts)
		if err != nil && result == nil {
			Logger.Errorf("Rekey failed: %v", err)
			if msg, ok := friendlyFailure(err); ok {
				spinner.FinalMSG = msg
				return nil
			}
			return err
		}

		failed := result.Failed()
		if len(failed) > 0 {
			Logger.Errorf("Rekey completed with %d failure(s)", len(failed))
			var b strings.Builder
			b.WriteString(color.RedString("✗") + fmt.Sprintf(" Rekeyed %d of %d file(s); failures:\n",
				len(result.Results)-len(failed), len(result.Results)))
			for _, f := range failed {
				b.WriteString("    - " + color.YellowString(f.Path) + ": " + f.Err.Error() + "\n")
			}
			b.WriteString(color.CyanString("→") + " Fix the errors above and run " +
				color.YellowString("arcanum rekey --all") + " again")
			spinner.FinalMSG = b.String()
			return err
		}

		if err != nil {
			return Logger.ErrorfAndReturn("rekey finished but saving the cache failed: %v", err)
		}

		var paths []string
		for _, res := range result.Results {
			paths = append(paths, res.Path)
		}

		Logger.Infof("Rekey command completed successfully")
		spinner.FinalMSG = color.GreenString("✓") + fmt.Sprintf(" Rekeyed %d file(s) to their current recipient sets:", len(result.Results)) +
			ui.FormatPaths(paths) +
			color.CyanString("→") + " The re-encrypted files are safe to commit to version control"
		return nil
	},
}

func init() {
	rekeyCmd.Flags().BoolVar(&rekeyAll, "all", false, "rekey every file in the manifest")
	rekeyCmd.Flags().IntVar(&rekeyWorkers, "workers", 0, "max concurrent files (0 = default)")
}
