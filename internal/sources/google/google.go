package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"txdash/internal/core"
	"txdash/internal/sources"
)

// Options selects the spreadsheet and the two tabs holding the dataset.
type Options struct {
	SpreadsheetID     string
	CustomersSheet    string
	TransactionsSheet string
}

// valuesFunc returns the cell matrix of an A1 range.
type valuesFunc func(ctx context.Context, rng string) ([][]interface{}, error)

type Client struct {
	values            valuesFunc
	customersSheet    string
	transactionsSheet string
}

// Ensure interface conformance
var _ sources.DatasetReader = (*Client)(nil)

// New creates a Sheets reader authenticated with service account credentials.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	spreadsheetID := opts.SpreadsheetID
	return newClient(func(ctx context.Context, rng string) ([][]interface{}, error) {
		resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, rng).
			ValueRenderOption("UNFORMATTED_VALUE").
			Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}, opts), nil
}

func newClient(values valuesFunc, opts Options) *Client {
	cs := opts.CustomersSheet
	if cs == "" {
		cs = "Customers"
	}
	ts := opts.TransactionsSheet
	if ts == "" {
		ts = "Transactions"
	}
	return &Client{values: values, customersSheet: cs, transactionsSheet: ts}
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.DebugContext(ctx, "Creating Google Sheets service", "credentials_size", len(credentialsJSON))
	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
}

// ReadDataset reads both tabs concurrently and parses them by header name.
func (c *Client) ReadDataset(ctx context.Context) (core.Dataset, error) {
	var custRows, txRows [][]interface{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.values(gctx, c.customersSheet+"!A:Z")
		if err != nil {
			return fmt.Errorf("read %s: %w", c.customersSheet, err)
		}
		custRows = v
		return nil
	})
	g.Go(func() error {
		v, err := c.values(gctx, c.transactionsSheet+"!A:Z")
		if err != nil {
			return fmt.Errorf("read %s: %w", c.transactionsSheet, err)
		}
		txRows = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Dataset{}, err
	}

	customers, err := parseCustomers(custRows)
	if err != nil {
		return core.Dataset{}, err
	}
	transactions, err := parseTransactions(txRows)
	if err != nil {
		return core.Dataset{}, err
	}
	return core.Dataset{Customers: customers, Transactions: transactions}, nil
}
