package commands

import (
	"fmt"
	"os"

	"boincstats/lib/boinc"
	"boincstats/lib/serviceutil"
	"boincstats/lib/taskstore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	historyDb   *string
	historySite *string
)

func init() {
	historyDb = historyCmd.Flags().String("db", "", "The database to read, overrides the config.")
	historySite = historyCmd.Flags().String("site", "", "List the stored tasks of this site instead of the credit per project.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--db <path/to/history.db>] [--site <name>]",
	Short: "Prints the credit per project of every stored task.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := readConfig()

		dbConfig := cfg.Database
		if *historyDb != "" {
			dbConfig.File = *historyDb
			dbConfig.Url = ""
		}
		database, err := dbConfig.OpenDB()
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		store := taskstore.NewStore(database)
		err = store.Migrate(ctx)
		if err != nil {
			serviceutil.Fatal("failed to migrate db", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)

		if *historySite != "" {
			tasks, err := store.Tasks(ctx, *historySite)
			if err != nil {
				serviceutil.Fatal("failed to read tasks", err)
			}
			t.AppendHeader(table.Row{"Task", "Project", "Application", "State", "Sent", "Run time", "Credit"})
			for _, task := range tasks {
				sent := ""
				if !task.Sent.IsZero() {
					sent = task.Sent.Format("2006-01-02 15:04")
				}
				t.AppendRow(table.Row{
					task.Name,
					task.Project,
					task.Application,
					task.State,
					sent,
					boinc.FormatDuration(task.RunTime),
					fmt.Sprintf("%.2f", task.Credit),
				})
			}
			t.Render()
			return
		}

		credit, err := store.CreditByProject(ctx)
		if err != nil {
			serviceutil.Fatal("failed to read history", err)
		}
		t.AppendHeader(table.Row{"Project", "Tasks", "Credit", "Run time"})
		for _, c := range credit {
			t.AppendRow(table.Row{
				c.Project,
				c.Tasks,
				fmt.Sprintf("%.2f", c.Credit),
				boinc.FormatDuration(c.RunTime),
			})
		}
		t.Render()
	},
}
