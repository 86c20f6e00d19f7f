package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var autosnapshotEvery time.Duration

var autosnapshotCmd = &cobra.Command{
	Use:   "autosnapshot",
	Short: "Run a foreground loop that creates a snapshot on a fixed cadence",
	Long: `autosnapshot is a CLI-level convenience: it calls the same
Snapshot.Create operation a human would run by hand, on a schedule, via
github.com/robfig/cron/v3. It does not change the snapshot boundary
semantics — snapshots remain explicit, discrete operations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}

		spec := fmt.Sprintf("@every %s", autosnapshotEvery)
		c := cron.New()
		_, err = c.AddFunc(spec, func() {
			name := fmt.Sprintf("auto-%s", time.Now().UTC().Format("20060102T150405Z"))
			header, err := db.Snapshot.Create(name)
			if err != nil {
				fmt.Fprintln(os.Stderr, headerStyle.Render("autosnapshot failed:"), err)
				return
			}
			fmt.Println(headerStyle.Render("autosnapshot"), header.Name, header.ID)
		})
		if err != nil {
			return fmt.Errorf("autosnapshot: invalid schedule %q: %w", spec, err)
		}

		c.Start()
		defer c.Stop()

		fmt.Printf("autosnapshot running every %s, press Ctrl+C to stop\n", autosnapshotEvery)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return nil
	},
}

func init() {
	autosnapshotCmd.Flags().DurationVar(&autosnapshotEvery, "every", time.Hour, "snapshot cadence")
}
