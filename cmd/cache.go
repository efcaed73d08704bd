package cmd

import (
	"fmt"
	"strings"

	"github.com/arcanum-sh/arcanum/internal/workflows"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Rebuild the derived encryption cache",
	Long: `Regenerate the fingerprint cache from the encrypted files on disk and the
current arcanum.toml. The cache only ever holds data derivable from
ciphertext and configuration, so a lost or corrupted cache costs exactly
one rebuild.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting cache rebuild command")
		spinner, cleanup := startSpinner("Rebuilding cache...", verbose)
		defer cleanup()

		result, err := workflows.CacheRebuild(cmd.Context(), workflows.CacheRebuildOptions{})
		if err != nil && result == nil {
			Logger.Errorf("Cache rebuild failed: %v", err)
			if msg, ok := friendlyFailure(err); ok {
				spinner.FinalMSG = msg
				return nil
			}
			return err
		}

		var failed []string
		for _, r := range result.Results {
			if r.Err != nil {
				failed = append(failed, "    - "+color.YellowString(r.Path)+": "+r.Err.Error())
			}
		}
		if len(failed) > 0 {
			Logger.Errorf("Cache rebuild completed with %d failure(s)", len(failed))
			spinner.FinalMSG = color.RedString("✗") +
				fmt.Sprintf(" Indexed %d file(s); some could not be read:\n", result.Entries) +
				strings.Join(failed, "\n")
			return err
		}
		if err != nil {
			return Logger.ErrorfAndReturn("cache rebuild finished but saving failed: %v", err)
		}

		Logger.Infof("Cache rebuild command completed successfully")
		spinner.FinalMSG = color.GreenString("✓") + fmt.Sprintf(" Cache rebuilt with %d entries at ", result.Entries) +
			color.YellowString(result.CachePath)
		return nil
	},
}
