package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bianoble/assetspkg/internal/config"
	"github.com/bianoble/assetspkg/pkg/assetspkg"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every configured group and whether its bundle is built",
	Long: `Shows type, group, resolved file count, cache stamp, expected bundle path
and state (built, missing, pending, error) for every group the --only filter
selects. Nothing is written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, _, err := build.resolve(cmd.Flags())
		if err != nil {
			return err
		}

		client, err := assetspkg.New(assetspkg.ClientOptions{Packaging: opts})
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(stderr, cfgErr.Error())
			return nil
		}
		if err != nil {
			return err
		}

		statuses, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			info("No groups configured.")
			return nil
		}

		rows := make([][]string, 0, len(statuses))
		for _, s := range statuses {
			stamp := s.Stamp
			if stamp == "" {
				stamp = "-"
			}
			size := "-"
			if s.State == assetspkg.StateBuilt {
				size = humanSize(s.Size)
			}
			rows = append(rows, []string{
				string(s.Type), s.Group, strconv.Itoa(s.Files), stamp, size, s.Output, s.State,
			})
		}
		fmt.Fprintln(stdout, renderTable(
			[]string{"TYPE", "GROUP", "FILES", "STAMP", "SIZE", "OUTPUT", "STATE"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight},
		))

		for _, s := range statuses {
			if s.Err != nil {
				errorf("%s group '%s': %v", s.Type, s.Group, s.Err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
