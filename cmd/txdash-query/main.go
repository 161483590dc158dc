// Command txdash-query fetches a dashboard's /api/data payload and prints
// the filtered transactions, or one customer's daily totals.
//
//	txdash-query -url http://localhost:8081/api/data -q alice
//	txdash-query -customer 1 -sort
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"txdash/internal/cli"
	"txdash/internal/client"
	"txdash/internal/config"
	"txdash/internal/core"
	"txdash/internal/log"
)

func main() {
	cli.LoadEnvFile()
	ctx, stop := cli.SignalContext()
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	url        string
	query      string
	customerID string
	sortDates  bool
	asJSON     bool
	timeout    time.Duration
	attempts   int
	retryDelay time.Duration
	verbose    bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	cfg, err := config.Load()
	if err != nil {
		return options{}, err
	}
	defaultURL := cfg.RemoteDataURL
	if defaultURL == "" {
		defaultURL = "http://localhost:" + cfg.Port + "/api/data"
	}

	var o options
	fs := flag.NewFlagSet("txdash-query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.url, "url", defaultURL, "dataset endpoint")
	fs.StringVar(&o.query, "q", "", "filter by customer name or amount")
	fs.StringVar(&o.customerID, "customer", "", "print daily totals for this customer id")
	fs.BoolVar(&o.sortDates, "sort", cfg.ChartSortDates, "sort daily totals by date")
	fs.BoolVar(&o.asJSON, "json", false, "print JSON instead of a table")
	fs.DurationVar(&o.timeout, "timeout", cfg.FetchTimeout, "per-attempt request timeout")
	fs.IntVar(&o.attempts, "attempts", cfg.FetchAttempts, "fetch attempts")
	fs.DurationVar(&o.retryDelay, "retry-delay", cfg.FetchRetryDelay, "delay between attempts")
	fs.BoolVar(&o.verbose, "v", false, "log fetch details to stderr")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "txdash-query:", err)
		return 2
	}

	level := slog.LevelError
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level, Component: log.ComponentClient, Output: stderr})

	c := client.New(client.Options{
		URL:        o.url,
		Timeout:    o.timeout,
		Attempts:   o.attempts,
		RetryDelay: o.retryDelay,
		Logger:     logger.Logger,
	})
	ds, report, err := c.Fetch(ctx)
	if err != nil {
		fmt.Fprintln(stderr, "txdash-query:", err)
		return 1
	}
	if n := report.Skipped(); n > 0 {
		fmt.Fprintf(stderr, "txdash-query: skipped %d malformed records\n", n)
	}

	if o.customerID != "" {
		err = printSeries(stdout, ds, core.ID(o.customerID), o.sortDates, o.asJSON)
	} else {
		err = printTransactions(stdout, ds, o.query, o.asJSON)
	}
	if err != nil {
		fmt.Fprintln(stderr, "txdash-query:", err)
		return 1
	}
	return 0
}

func printTransactions(w io.Writer, ds core.Dataset, query string, asJSON bool) error {
	rows := core.DisplayRows(core.Filter(ds.Transactions, ds.Customers, query), ds.Customers)
	if asJSON {
		type row struct {
			ID           core.ID `json:"id"`
			CustomerID   core.ID `json:"customer_id"`
			CustomerName string  `json:"customer_name"`
			Date         string  `json:"date"`
			Amount       float64 `json:"amount"`
		}
		out := make([]row, 0, len(rows))
		for _, r := range rows {
			out = append(out, row{r.ID, r.CustomerID, r.CustomerName, r.Date, r.Amount})
		}
		return writeJSON(w, out)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Customer Name\tTransaction Date\tTransaction Amount")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.CustomerName, r.Date, r.AmountText)
	}
	return tw.Flush()
}

func printSeries(w io.Writer, ds core.Dataset, id core.ID, sortDates, asJSON bool) error {
	id = ds.ResolveID(string(id))
	series := core.Aggregate(ds.Transactions, id)
	if sortDates {
		series = series.SortedByDate()
	}
	if asJSON {
		return writeJSON(w, series)
	}

	name, _ := ds.CustomerName(id)
	fmt.Fprintln(w, core.ChartTitle(name))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, d := range series.Dates {
		fmt.Fprintf(tw, "%s\t%s\n", d, core.FormatAmount(series.Totals[i]))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
