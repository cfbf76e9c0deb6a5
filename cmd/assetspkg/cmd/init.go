package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default assets.yml scaffold.
const initTemplate = `# assetspkg groups
#
# Each group becomes one bundle: stylesheets/<name> is written as <name>.css
# and javascripts/<name> as <name>.js. Entries are relative to the type's
# source directory and carry no extension. Globs such as vendor/**/* are
# expanded in sorted order; a file listed twice is bundled once.

stylesheets:
  all:
    - reset
    - layout/*
    # - print          # .less sources are compiled to .css first

javascripts:
  app:
    - vendor/**/*
    - application

# Append ?embed to a url() in a stylesheet to inline a small image or font:
#   background: url(/images/logo.png?embed);
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter assets.yml",
	Long: `Creates the asset groups file at the --config path (by default
<root>/../config/assets.yml) with one stylesheet group and one script group.

Use --force to overwrite an existing file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath, err := build.groupsPath()
		if err != nil {
			return err
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. List your stylesheet and script sources in each group")
		info("  2. Run 'assetspkg status' to check that every entry resolves")
		info("  3. Run 'assetspkg' to write the bundles")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}
