package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage durable snapshots",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a snapshot of the current repository state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		header, err := db.Snapshot.Create(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s %s (%s)\n", headerStyle.Render("created"), header.ID, humanize.Bytes(uint64(header.SizeBytes)))
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		headers, err := db.Snapshot.List()
		if err != nil {
			return err
		}
		fmt.Println(headerStyle.Render(fmt.Sprintf("%-36s  %-20s  %-24s  %s", "ID", "NAME", "CREATED", "SIZE")))
		for _, h := range headers {
			fmt.Printf("%-36s  %-20s  %-24s  %s\n",
				h.ID, h.Name, h.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), humanize.Bytes(uint64(h.SizeBytes)))
		}
		if len(headers) == 0 {
			fmt.Println(dimStyle.Render("(no snapshots)"))
		}
		return nil
	},
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore the repository from a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := db.Snapshot.Restore(args[0]); err != nil {
			return err
		}
		fmt.Println(headerStyle.Render("restored"), args[0])
		return nil
	},
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := db.Snapshot.Delete(args[0]); err != nil {
			return err
		}
		fmt.Println(headerStyle.Render("deleted"), args[0])
		return nil
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotCreateCmd, snapshotListCmd, snapshotRestoreCmd, snapshotDeleteCmd)
}
