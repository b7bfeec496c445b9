package report

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smart-attendance/attendance-go/internal/conf"
	"github.com/smart-attendance/attendance-go/internal/datastore"
)

// Command creates the report command, which prints attendance statistics for
// a date range to stdout.
func Command(settings *conf.Settings) *cobra.Command {
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print attendance statistics for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(settings, startDate, endDate)
		},
	}

	today := datastore.DateOf(time.Now())
	weekAgo := datastore.DateOf(time.Now().AddDate(0, 0, -7))
	cmd.Flags().StringVar(&startDate, "start", weekAgo, "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", today, "End date (YYYY-MM-DD)")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func runReport(settings *conf.Settings, startDate, endDate string) error {
	for _, d := range []string{startDate, endDate} {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", d)
		}
	}

	ds, err := datastore.New(settings)
	if err != nil {
		return err
	}
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer ds.Close()

	stats, err := ds.AttendanceStats(startDate, endDate)
	if err != nil {
		return fmt.Errorf("failed to load attendance stats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tRECORDS\tENTRIES\tEXITS\tSTUDENTS")
	for _, day := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
			day.Date, day.TotalRecords, day.Entries, day.Exits, day.UniqueStudents)
	}
	return w.Flush()
}
