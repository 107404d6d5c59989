package cmd

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/NamanBalaji/updater/internal/repository"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past downloads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openHistory()
		if err != nil {
			return err
		}
		defer repo.Close()

		records, err := repo.FindAll()
		if err != nil {
			return err
		}

		if len(records) == 0 {
			PrintInfo("no downloads yet")
			return nil
		}

		if historyLimit > 0 && len(records) > historyLimit {
			records = records[:historyLimit]
		}

		PrintDetail(historyTable(records, time.Now()))

		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of records to show, 0 for all")
}

func historyTable(records []*repository.Record, now time.Time) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("STARTED", "STATE", "VERSION", "SIZE", "THREADS", "TOOK", "FILE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Align(lipgloss.Center).Padding(0, 1)
			}

			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, r := range records {
		size := "-"
		if r.TotalSize > 0 {
			size = humanize.IBytes(uint64(r.TotalSize))
		}

		version := r.Version
		if version == "" {
			version = "-"
		}

		t.Row(
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			r.State,
			version,
			size,
			strconv.Itoa(r.Threads),
			r.Duration().Round(time.Second).String(),
			r.DestPath,
		)
	}

	return t.String()
}
