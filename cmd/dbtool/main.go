package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/615RealtyGuy/rf401-timeline/modules/timeline/domain/clausemap"
)

func main() {
	if len(os.Args) < 2 {
		fatalf("usage: dbtool <deals-smoke|clausemap-validate> [args]")
	}

	switch os.Args[1] {
	case "deals-smoke":
		dealsSmoke(os.Args[2:])
	case "clausemap-validate":
		clausemapValidate(os.Args[2:])
	default:
		fatalf("unknown subcommand: %s", os.Args[1])
	}
}

const dealsSchema = `
CREATE TABLE IF NOT EXISTS deals (
	deal_uuid uuid PRIMARY KEY,
	owner_name text NOT NULL DEFAULT '',
	name text NOT NULL,
	property_address text NOT NULL DEFAULT '',
	buyer_name text NOT NULL DEFAULT '',
	seller_name text NOT NULL DEFAULT '',
	binding_agreement_date date,
	status text NOT NULL DEFAULT 'active'
		CONSTRAINT deals_status_check CHECK (status IN ('active', 'archived')),
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now(),
	manual_entry jsonb,
	overrides jsonb NOT NULL DEFAULT '{}'::jsonb,
	events jsonb NOT NULL DEFAULT '[]'::jsonb,
	tasks jsonb NOT NULL DEFAULT '[]'::jsonb,
	info_items jsonb NOT NULL DEFAULT '[]'::jsonb
);`

// dealsSmoke verifies the deals table roundtrip inside one rolled-back
// transaction: insert, jsonb read-back, status constraint.
func dealsSmoke(args []string) {
	fs := flag.NewFlagSet("deals-smoke", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var url string
	fs.StringVar(&url, "url", "", "postgres connection string")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}
	if url == "" {
		fatalf("missing --url")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		fatal(err)
	}
	defer conn.Close(context.Background())

	tx, err := conn.Begin(ctx)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, dealsSchema); err != nil {
		fatal(err)
	}

	const dealUUID = "00000000-0000-4000-8000-00000000d341"
	if _, err := tx.Exec(ctx, `
		INSERT INTO deals (deal_uuid, name, binding_agreement_date, events)
		VALUES ($1, 'smoke deal', '2025-01-15'::date, '[{"id":"e1","title":"Binding Agreement Date"}]'::jsonb)`,
		dealUUID,
	); err != nil {
		fatal(err)
	}

	var name, bindingDate, eventTitle string
	if err := tx.QueryRow(ctx, `
		SELECT name, to_char(binding_agreement_date, 'YYYY-MM-DD'), events->0->>'title'
		FROM deals WHERE deal_uuid = $1`, dealUUID,
	).Scan(&name, &bindingDate, &eventTitle); err != nil {
		fatal(err)
	}
	if name != "smoke deal" || bindingDate != "2025-01-15" || eventTitle != "Binding Agreement Date" {
		fatalf("roundtrip mismatch: name=%q binding=%q event=%q", name, bindingDate, eventTitle)
	}

	if _, err := tx.Exec(ctx, `SAVEPOINT sp_status;`); err != nil {
		fatal(err)
	}
	if _, err := tx.Exec(ctx, `UPDATE deals SET status = 'closed' WHERE deal_uuid = $1`, dealUUID); err == nil {
		fatalf("deals_status_check did not reject unknown status")
	}
	if _, err := tx.Exec(ctx, `ROLLBACK TO SAVEPOINT sp_status;`); err != nil {
		fatal(err)
	}

	fmt.Println("deals-smoke: PASS")
}

func clausemapValidate(args []string) {
	fs := flag.NewFlagSet("clausemap-validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var path string
	fs.StringVar(&path, "path", "", "clause map yaml path (default: embedded catalog)")
	if err := fs.Parse(args); err != nil {
		fatal(err)
	}

	catalog := clausemap.Default()
	if path != "" {
		c, err := clausemap.LoadCatalog(path)
		if err != nil {
			fatal(err)
		}
		catalog = c
	}

	fmt.Printf("clausemap-validate: PASS (version=%s form=%s anchors=%d clauses=%d financial_fields=%d text_fields=%d)\n",
		catalog.Version, catalog.Form,
		len(catalog.Anchors), len(catalog.Clauses), len(catalog.FinancialFields), len(catalog.TextFields))
}

func fatal(err error) {
	if err == nil {
		os.Exit(1)
	}
	fatalf("%v", err)
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
