// Command slots fetches the schedule once and prints what the booking page
// would offer. It reads the same environment as the API server; flags
// override it.
//
// Usage:
//
//	slots [-url=URL] [-from=YYYY-MM-DD] [-days=N]
//	slots -date=2025-11-05 [-duration=45] [-json]
//	slots -drops
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/salon-booking/internal/app/bootstrap"
	"github.com/wolfman30/salon-booking/internal/availability"
	appconfig "github.com/wolfman30/salon-booking/internal/config"
	"github.com/wolfman30/salon-booking/internal/normalize"
	"github.com/wolfman30/salon-booking/internal/schedule"
	"github.com/wolfman30/salon-booking/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), appconfig.Load(), os.Args[1:], os.Stdout, time.Now); err != nil {
		fmt.Fprintln(os.Stderr, "slots:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appconfig.Config, args []string, out io.Writer, now func() time.Time) error {
	fs := flag.NewFlagSet("slots", flag.ContinueOnError)
	fs.SetOutput(out)
	url := fs.String("url", cfg.SheetsURL, "spreadsheet service URL")
	from := fs.String("from", "", "first date of the horizon (default today)")
	days := fs.Int("days", cfg.HorizonDays, "number of days to list")
	date := fs.String("date", "", "show the day view of this date")
	duration := fs.Int("duration", cfg.DefaultDurationMinutes, "booking length in minutes")
	asJSON := fs.Bool("json", false, "print JSON")
	drops := fs.Bool("drops", false, "print records dropped during normalization")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.SheetsURL = *url
	if strings.TrimSpace(cfg.SheetsURL) == "" {
		return errors.New("SHEETS_URL or -url is required")
	}
	policy, err := bootstrap.BuildPolicy(cfg)
	if err != nil {
		return err
	}
	client, err := bootstrap.BuildSheetsClient(cfg, logging.New("error"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.SheetsTimeout+5*time.Second)
	defer cancel()
	payload, err := client.FetchSchedule(ctx)
	if err != nil {
		return err
	}
	sched := payload.Schedule(schedule.WithFetchedAt(now()), schedule.WithLocation(cfg.Location()))
	engine := availability.New(policy)

	switch {
	case *drops:
		return printDrops(out, sched.Drops(), *asJSON)
	case *date != "":
		key, ok := normalize.NormalizeDate(*date)
		if !ok {
			return fmt.Errorf("invalid date %q", *date)
		}
		return printDay(out, engine.Day(sched, key, *duration), *asJSON)
	}

	start := normalize.DateKeyOf(now().In(cfg.Location()))
	if *from != "" {
		key, ok := normalize.NormalizeDate(*from)
		if !ok {
			return fmt.Errorf("invalid date %q", *from)
		}
		start = key
	}
	dates := engine.ListOpenDates(sched, start, *days)
	if *asJSON {
		return json.NewEncoder(out).Encode(map[string]any{"from": start, "days": *days, "dates": dates})
	}
	fmt.Fprintf(out, "open dates from %s (%d days): %d\n", start, *days, len(dates))
	for _, d := range dates {
		fmt.Fprintf(out, "  %s %s\n", d, d.Weekday().String()[:3])
	}
	return nil
}

func printDay(out io.Writer, view availability.DayView, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(out).Encode(view)
	}
	if !view.Open {
		fmt.Fprintf(out, "%s closed\n", view.Date)
		return nil
	}
	fmt.Fprintf(out, "%s open %s-%s\n", view.Date, view.OpenTime, view.CloseTime)
	for _, a := range view.Appointments {
		blocking := ""
		if a.Blocking {
			blocking = " (blocking)"
		}
		fmt.Fprintf(out, "  booked %s-%s %s%s\n", a.Time, a.End, a.Status, blocking)
	}
	if len(view.FreeSlots) == 0 {
		fmt.Fprintf(out, "no free slot for %d min\n", view.Duration)
		return nil
	}
	fmt.Fprintf(out, "free for %d min: %s\n", view.Duration, strings.Join(view.FreeSlots, " "))
	return nil
}

func printDrops(out io.Writer, drops []schedule.Drop, asJSON bool) error {
	if asJSON {
		if drops == nil {
			drops = []schedule.Drop{}
		}
		return json.NewEncoder(out).Encode(drops)
	}
	fmt.Fprintf(out, "dropped records: %d\n", len(drops))
	for _, d := range drops {
		fmt.Fprintf(out, "  %s\n", d)
	}
	return nil
}
