package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/januslink/janus/pkg/events"
	"github.com/januslink/janus/pkg/history"
)

var historyFlags struct {
	limit int
	since time.Duration
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the transcript log",
	Long: `Print logged utterances, oldest first. Requires history_dir in the
configuration.`,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVarP(&historyFlags.limit, "limit", "n", 0, "show only the newest N records")
	f.DurationVar(&historyFlags.since, "since", 0, "show records from the last duration, e.g. 24h")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := getConfig()
	if err != nil {
		return err
	}
	if cfg.HistoryDir == "" {
		return fmt.Errorf("no history_dir configured (see 'janus config')")
	}
	log, err := history.Open(history.Options{Dir: cfg.HistoryDir})
	if err != nil {
		return err
	}
	defer log.Close()

	printRecord := func(rec history.Record) {
		label := "TX"
		if rec.Direction == history.Received {
			label = "RX"
		}
		ev := events.NewTranscript(rec.Text, rec.Prosody)
		fmt.Printf("%s %s %s\n",
			styles.Meta.Render(rec.At().Format("2006-01-02 15:04:05")),
			styles.EventLine(label, ev, 0),
			styles.Meta.Render("["+rec.Mode.String()+"]"),
		)
	}

	if historyFlags.limit > 0 {
		recs, err := log.Recent(historyFlags.limit)
		if err != nil {
			return err
		}
		// Recent is newest first; print chronologically.
		for i := len(recs) - 1; i >= 0; i-- {
			printRecord(recs[i])
		}
		return nil
	}

	scan := log.All()
	if historyFlags.since > 0 {
		scan = log.Since(time.Now().Add(-historyFlags.since))
	}
	for rec, err := range scan {
		if err != nil {
			return err
		}
		printRecord(rec)
	}
	return nil
}
