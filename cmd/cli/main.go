// Command ledger is a small terminal client for the ledger API. It signs in
// with a Firebase refresh token and uses pkg/client for every call.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/GregMSThompson/finance-ledger/pkg/client"
	"github.com/GregMSThompson/finance-ledger/pkg/logger"
)

const usage = `usage: ledger <command> [flags]

commands:
  list     list transactions (-type, -from, -to, -category, -limit)
  report   print the overview report as JSON
  pay      record the next installment of a credit purchase (-id)
  export   write the CSV export to stdout or -out
`

func main() {
	log := logger.New(os.Getenv("LOGLEVEL"), logger.NewCloudRunHandler)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logger.ToContext(ctx, log)

	c, err := newClient()
	if err == nil {
		err = run(ctx, c, os.Args[1], os.Args[2:], os.Stdout)
	}
	if err != nil {
		if errors.Is(err, client.ErrReauthRequired) {
			log.Error("session expired, sign in again and update FIREBASE_REFRESH_TOKEN")
		} else {
			log.Error("command failed", "command", os.Args[1], "error", err)
		}
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	baseURL := os.Getenv("LEDGER_API_URL")
	apiKey := os.Getenv("FIREBASE_API_KEY")
	refresh := os.Getenv("FIREBASE_REFRESH_TOKEN")
	if baseURL == "" || apiKey == "" || refresh == "" {
		return nil, errors.New("LEDGER_API_URL, FIREBASE_API_KEY and FIREBASE_REFRESH_TOKEN must be set")
	}
	return client.New(baseURL, client.NewFirebaseSession(apiKey, refresh)), nil
}

type ledgerAPI interface {
	ListTransactions(ctx context.Context, q client.ListQuery) ([]client.Transaction, error)
	Overview(ctx context.Context) (client.Overview, error)
	PayInstallment(ctx context.Context, id string) (client.PayInstallmentResult, error)
	ExportCSV(ctx context.Context, q client.ListQuery) ([]byte, error)
}

func run(ctx context.Context, api ledgerAPI, cmd string, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	var q client.ListQuery
	filters := func() {
		fs.StringVar(&q.Type, "type", "", "income or expense")
		fs.StringVar(&q.From, "from", "", "first date, YYYY-MM-DD")
		fs.StringVar(&q.To, "to", "", "last date, YYYY-MM-DD")
		fs.StringVar(&q.Category, "category", "", "category name")
		fs.IntVar(&q.Limit, "limit", 0, "maximum rows")
	}

	switch cmd {
	case "list":
		filters()
		if err := fs.Parse(args); err != nil {
			return err
		}
		txs, err := api.ListTransactions(ctx, q)
		if err != nil {
			return err
		}
		return printTransactions(stdout, txs)

	case "report":
		if err := fs.Parse(args); err != nil {
			return err
		}
		overview, err := api.Overview(ctx)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(overview)

	case "pay":
		id := fs.String("id", "", "credit purchase id")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *id == "" {
			return errors.New("pay: -id is required")
		}
		res, err := api.PayInstallment(ctx, *id)
		if err != nil {
			return err
		}
		remaining := 0
		if res.Credit.RemainingInstallments != nil {
			remaining = *res.Credit.RemainingInstallments
		}
		_, err = fmt.Fprintf(stdout, "paid %s, %d installments remaining\n", res.Payment.Amount.StringFixed(2), remaining)
		return err

	case "export":
		filters()
		out := fs.String("out", "", "file to write, stdout when empty")
		if err := fs.Parse(args); err != nil {
			return err
		}
		data, err := api.ExportCSV(ctx, q)
		if err != nil {
			return err
		}
		if *out == "" {
			_, err = stdout.Write(data)
			return err
		}
		return os.WriteFile(*out, data, 0o600)

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func printTransactions(w io.Writer, txs []client.Transaction) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tCATEGORY\tDESCRIPTION\tID")
	for _, tx := range txs {
		category := ""
		if tx.Category != nil {
			category = *tx.Category
		}
		amount := tx.Amount.StringFixed(2)
		if tx.IsCredit && tx.RemainingInstallments != nil && tx.Installments != nil {
			amount = fmt.Sprintf("%s (%d/%d left)", amount, *tx.RemainingInstallments, *tx.Installments)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.Date.Format("2006-01-02"), tx.Type, amount, category, tx.Description, tx.ID)
	}
	return tw.Flush()
}
