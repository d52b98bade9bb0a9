package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hornet-api/hornet/pkg/config"
	"github.com/hornet-api/hornet/pkg/history"
)

var historyLimit int

func init() {
	historyCmd.Flags().StringVarP(&requestPath, "request", "r", "", "only show executions of one request path")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "maximum entries to show (default from config)")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past request executions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		limit := historyLimit
		if limit <= 0 {
			limit = cfg.HistoryLimit
		}
		name := collectionName
		if name == "" {
			name = "default"
		}
		key := history.CollectionKey(name)

		path, err := config.HistoryPath()
		if err != nil {
			return err
		}
		log, err := history.Open(cmd.Context(), path)
		if err != nil {
			return err
		}
		defer log.Close()

		entries, err := log.Recent(cmd.Context(), key, requestPath, limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No executions recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tSTATUS\tMETHOD\tREQUEST\tDURATION\tSIZE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%dms\t%dB\n",
				e.ExecutedAt.Local().Format("2006-01-02 15:04:05"),
				e.StatusCode, e.Method, e.RequestPath,
				e.Duration.Milliseconds(), e.Size)
		}
		return w.Flush()
	},
}
