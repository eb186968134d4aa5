package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dmcallister/volunteer-scheduler-api/pkg/auth"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/calendar"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/handlers"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/roster"
	"github.com/dmcallister/volunteer-scheduler-api/pkg/scheduler"
)

var rootCmd = &cobra.Command{
	Use:   "schedctl",
	Short: "Volunteer scheduler utilities",
}

var (
	inputPath  string
	outputPath string
	startDate  string
	months     int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a schedule from a volunteer signup CSV",
	RunE:  generate,
}

var keygenCmd = &cobra.Command{
	Use:   "keygen <owner>",
	Short: "Generate a signed API key",
	Args:  cobra.ExactArgs(1),
	RunE:  keygen,
}

func init() {
	generateCmd.Flags().StringVarP(&inputPath, "input", "i", "", "volunteer signup CSV (required)")
	generateCmd.Flags().StringVarP(&outputPath, "output", "o", "", "schedule CSV output path (default stdout)")
	generateCmd.Flags().StringVarP(&startDate, "start", "s", "", "start date YYYY-MM-DD (default today)")
	generateCmd.Flags().IntVarP(&months, "months", "m", 1, "schedule horizon in months (1-3)")
	_ = generateCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(keygenCmd)
}

func generate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	if startDate != "" {
		parsed, err := time.Parse(calendar.DateKey, startDate)
		if err != nil {
			return fmt.Errorf("invalid --start %q: expected YYYY-MM-DD", startDate)
		}
		start = parsed
	}
	if months < 1 || months > handlers.MaxRangeMonths {
		return fmt.Errorf("--months must be between 1 and %d", handlers.MaxRangeMonths)
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open signup sheet: %w", err)
	}
	defer f.Close()

	rows, err := roster.LoadCSV(f)
	if err != nil {
		return fmt.Errorf("parse signup sheet: %w", err)
	}

	vols := roster.FromRaw(rows)
	occurrences := calendar.Sundays(start, months)
	monthKeys := calendar.Months(occurrences)

	engine := scheduler.NewEngine(vols, scheduler.DefaultOptions())
	schedule := engine.Run(occurrences)
	_, compliance := engine.Summarize(monthKeys)

	out := os.Stdout
	if outputPath != "" {
		out, err = os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer out.Close()
	}
	if _, err := out.WriteString(handlers.WriteScheduleCSV(schedule)); err != nil {
		return fmt.Errorf("write schedule: %w", err)
	}

	unfilled := scheduler.CountUnfilled(schedule)
	fmt.Fprintf(os.Stderr, "%d volunteers, %d Sundays, %d unfilled slots\n",
		len(vols), len(occurrences), unfilled)

	if len(compliance) == 0 {
		fmt.Fprintln(os.Stderr, "All volunteers met the monthly minimum.")
		return nil
	}
	fmt.Fprintln(os.Stderr, "Below the monthly minimum:")
	for _, entry := range compliance {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", entry.Volunteer, calendar.MonthName(entry.Month))
	}
	return nil
}

func keygen(cmd *cobra.Command, args []string) error {
	if os.Getenv("API_MASTER_SECRET") == "" {
		return fmt.Errorf("API_MASTER_SECRET is not set")
	}
	fmt.Println(auth.GenerateAPIKey(args[0]))
	return nil
}

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
