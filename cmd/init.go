package cmd

import (
	"errors"
	"fmt"

	kerrors "github.com/arcanum-sh/arcanum/internal/errors"
	"github.com/arcanum-sh/arcanum/internal/workflows"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	initForce  bool
	initAdmins []string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an Arcanum project in the current directory",
	Long: `Create an arcanum.toml manifest and the .arcanum directory for the audit
trail. Admin recipients passed with --admin can decrypt every managed file
and are included in every recipient set.

Examples:
  arcanum init
  arcanum init --admin "age1ql3z7hjy54pw3hyww5ayyfg7zqgvc7w3j2elw8zmrj2kg5sfn9aqmcac8p"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")
		spinner, cleanup := startSpinner("Initializing project...", verbose)
		defer cleanup()

		result, err := workflows.Init(cmd.Context(), workflows.InitOptions{
			AdminRecipients: initAdmins,
			Force:           initForce,
		})
		if err != nil {
			Logger.Errorf("Init failed: %v", err)
			if errors.Is(err, kerrors.ErrProjectAlreadyInitialized) {
				spinner.FinalMSG = color.RedString("✗") + " An Arcanum project already exists here\n" +
					color.CyanString("→") + " Pass " + color.YellowString("--force") + " to overwrite the manifest"
				return nil
			}
			return err
		}

		spinner.Stop()

		fmt.Println()
		myFigure := figure.NewColorFigure("Arcanum", "alligator2", "green", true)
		myFigure.Print()
		fmt.Println()

		Logger.Infof("Init command completed successfully")
		spinner.FinalMSG = color.GreenString("✓") + " Project initialized at " + color.YellowString(result.ProjectPath) + "\n" +
			color.CyanString("→") + " Add managed files under " + color.YellowString("[files.<name>]") + " in " +
			color.YellowString(result.ManifestPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing manifest")
	initCmd.Flags().StringArrayVar(&initAdmins, "admin", nil, "admin recipient public key (repeatable)")
}
