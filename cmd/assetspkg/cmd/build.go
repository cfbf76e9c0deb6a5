package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/bianoble/assetspkg/internal/config"
	"github.com/bianoble/assetspkg/pkg/assetspkg"
)

// runBuild is the root command: one full packaging pass.
func runBuild(cmd *cobra.Command, _ []string) error {
	opts, layers, err := build.resolve(cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	client, err := assetspkg.New(assetspkg.ClientOptions{Packaging: opts, Logger: logger})
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		// Nothing to package; report it and exit cleanly.
		fmt.Fprintln(stderr, cfgErr.Error())
		return nil
	}
	if err != nil {
		return err
	}

	for _, l := range layers {
		if l.Loaded {
			detail("options: %s (%s)", l.Path, l.Level)
		}
	}

	start := time.Now()
	res, err := client.Build(cmd.Context())
	if err != nil {
		return err
	}

	if verbose {
		printSummary(client.Options(), res, time.Since(start))
	}
	return nil
}

func printSummary(opts config.Options, res *assetspkg.Result, elapsed time.Duration) {
	if len(res.Bundles) == 0 {
		info("No groups selected.")
		return
	}

	rows := make([][]string, 0, len(res.Bundles))
	var total int64
	for _, b := range res.Bundles {
		output := ""
		if len(b.Outputs) > 0 {
			output = relTo(opts.Root, b.Outputs[0])
		}
		rows = append(rows, []string{
			string(b.Type),
			b.Group,
			strconv.Itoa(b.Files),
			humanSize(int64(b.Bytes)),
			output,
		})
		total += int64(b.Bytes)
	}

	fmt.Fprintln(stdout, renderTable(
		[]string{"TYPE", "GROUP", "FILES", "SIZE", "OUTPUT"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	info("%d bundle(s), %s, %d stylesheet(s) precompiled in %s",
		len(res.Bundles), humanSize(total), len(res.Precompiled), elapsed.Round(time.Millisecond))
}
