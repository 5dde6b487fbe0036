package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/assistant"
	"github.com/carteira-app/carteira/internal/backup"
	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/engine"
	"github.com/carteira-app/carteira/internal/logger"
	"github.com/carteira-app/carteira/internal/store/inmemory"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(log)
	case "show":
		runShow(log)
	case "tick":
		runTick(log)
	case "project":
		runProject(log)
	case "invoice":
		runInvoice(log)
	case "pay-invoice":
		runPayInvoice(log)
	case "pay":
		runPay(log)
	case "transfer":
		runTransfer(log)
	case "settle":
		runSettle(log)
	case "export":
		runExport(log)
	case "import":
		runImport(log)
	case "chat":
		runChat(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Carteira CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  init         Create a new ledger state file with a default account")
	fmt.Println("  show         Show accounts and pending installments")
	fmt.Println("  tick         Run due recurring items")
	fmt.Println("  project      Forecast balances over the coming months")
	fmt.Println("  invoice      Show a card invoice for a month")
	fmt.Println("  pay-invoice  Settle a card invoice in full")
	fmt.Println("  pay          Pay a single installment")
	fmt.Println("  transfer     Move money between accounts")
	fmt.Println("  settle       Settle a whole schedule with one total")
	fmt.Println("  export       Upload the state snapshot to GCS")
	fmt.Println("  import       Download a state snapshot from GCS")
	fmt.Println("  chat         Ask the assistant a question about the ledger")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nAll commands take -state PATH (or set CARTEIRA_STATE).")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

// stateFlag registers the shared -state flag on a command's flag set.
func stateFlag(fs *flag.FlagSet) *string {
	return fs.String("state", os.Getenv("CARTEIRA_STATE"), "Path to the ledger snapshot file")
}

// loadState restores a snapshot into a fresh in-memory store.
func loadState(ctx context.Context, log zerolog.Logger, path string) *inmemory.Store {
	if path == "" {
		log.Fatal().Msg("Error: -state is required (or set CARTEIRA_STATE)")
	}
	snap, err := backup.LoadFromFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load state")
	}
	st := inmemory.NewStore()
	if err := backup.Restore(ctx, st, snap); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to restore state")
	}
	return st
}

// saveState writes the store back to the snapshot file.
func saveState(ctx context.Context, log zerolog.Logger, st *inmemory.Store, path string) {
	snap, err := backup.Export(ctx, st)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to export state")
	}
	if err := backup.SaveToFile(snap, path); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to save state")
	}
}

func parseDecimal(log zerolog.Logger, name, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.Fatal().Str(name, s).Msg("Invalid amount")
	}
	return d
}

func runInit(log zerolog.Logger) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	state := stateFlag(fs)
	name := fs.String("account", "Main", "Name of the default account")
	opening := fs.String("opening", "0", "Opening balance of the default account")
	fs.Parse(os.Args[2:])

	if *state == "" {
		log.Fatal().Msg("Error: -state is required (or set CARTEIRA_STATE)")
	}
	if _, err := os.Stat(*state); err == nil {
		log.Fatal().Str("path", *state).Msg("State file already exists")
	} else if !os.IsNotExist(err) {
		log.Fatal().Err(err).Str("path", *state).Msg("Failed to check state file")
	}

	ctx := context.Background()
	st := inmemory.NewStore()
	ledger := engine.NewLedger(st, log)

	acc, err := ledger.CreateAccount(ctx, "", *name, parseDecimal(log, "opening", *opening), true)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create account")
	}

	saveState(ctx, log, st, *state)
	fmt.Printf("Created %s with account %q (%s)\n", *state, acc.Name, acc.ID)
}

func runShow(log zerolog.Logger) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	state := stateFlag(fs)
	fs.Parse(os.Args[2:])

	ctx := context.Background()
	st := loadState(ctx, log, *state)

	accounts, err := st.ListAccounts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list accounts")
	}
	fmt.Printf("=== Accounts (%d) ===\n", len(accounts))
	total := decimal.Zero
	for _, acc := range accounts {
		marker := " "
		if acc.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %-20s %12s  (%s)\n", marker, acc.Name, acc.Balance.StringFixed(2), acc.ID)
		total = total.Add(acc.Balance)
	}
	fmt.Printf("  %-20s %12s\n", "Total", total.StringFixed(2))

	cards, err := st.ListCards(ctx, false)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list cards")
	}
	cardsByID := make(map[string]*domain.Card, len(cards))
	for _, c := range cards {
		cardsByID[c.ID] = c
	}

	pending, err := st.ListPendingInstallments(ctx, "", "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list pending installments")
	}
	fmt.Printf("\n=== Pending installments (%d) ===\n", len(pending))
	for _, p := range pending {
		due := engine.DueDate(p, cardsByID[p.CardID])
		fmt.Printf("  %s #%d  %10s  due %s\n",
			p.Description, p.Installment.SequenceNumber, p.Installment.Amount.StringFixed(2), due)
	}
}

func runTick(log zerolog.Logger) {
	fs := flag.NewFlagSet("tick", flag.ExitOnError)
	state := stateFlag(fs)
	todayStr := fs.String("today", "", "Run as of this date (YYYY-MM-DD, defaults to today)")
	fs.Parse(os.Args[2:])

	today := domain.Today()
	if *todayStr != "" {
		var err error
		if today, err = domain.ParseDate(*todayStr); err != nil {
			log.Fatal().Err(err).Msg("Invalid -today, want YYYY-MM-DD")
		}
	}

	ctx := context.Background()
	st := loadState(ctx, log, *state)
	ledger := engine.NewLedger(st, log)

	report, err := ledger.RunRecurring(ctx, today)
	if err != nil {
		log.Fatal().Err(err).Msg("Recurring run failed")
	}

	saveState(ctx, log, st, *state)
	fmt.Printf("Evaluated %d items, fired %d\n", report.Evaluated, report.Fired)
	for _, tx := range report.Transactions {
		fmt.Printf("  %s  %s on %s\n", tx.Description, tx.Amount.StringFixed(2), tx.Date)
	}
}

func runProject(log zerolog.Logger) {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	state := stateFlag(fs)
	months := fs.Int("months", 6, "How many months to forecast")
	fs.Parse(os.Args[2:])

	ctx := context.Background()
	st := loadState(ctx, log, *state)
	ledger := engine.NewLedger(st, log)

	points, err := ledger.Project(ctx, *months)
	if err != nil {
		log.Fatal().Err(err).Msg("Projection failed")
	}

	fmt.Println("=== Balance projection ===")
	for _, p := range points {
		fmt.Printf("  %s  %12s\n", p.MonthKey, p.ProjectedBalance.StringFixed(2))
	}
}

func runInvoice(log zerolog.Logger) {
	fs := flag.NewFlagSet("invoice", flag.ExitOnError)
	state := stateFlag(fs)
	cardID := fs.String("card", "", "Card ID")
	month := fs.String("month", "", "Invoice month (YYYY-MM)")
	fs.Parse(os.Args[2:])

	if *cardID == "" || *month == "" {
		log.Fatal().Msg("Usage: cli invoice -card ID -month YYYY-MM")
	}

	ctx := context.Background()
	st := loadState(ctx, log, *state)
	ledger := engine.NewLedger(st, log)

	view, err := ledger.Invoice(ctx, *cardID, *month)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble invoice")
	}

	fmt.Printf("=== Invoice %s %s ===\n", *cardID, view.MonthKey)
	fmt.Printf("Due:   %s\n", view.DueDate)
	fmt.Printf("Total: %s (%d items)\n", view.Total.StringFixed(2), len(view.Items))
	for _, p := range view.Items {
		fmt.Printf("  %s #%d  %10s\n",
			p.Description, p.Installment.SequenceNumber, p.Installment.Amount.StringFixed(2))
	}
}

func runPayInvoice(log zerolog.Logger) {
	fs := flag.NewFlagSet("pay-invoice", flag.ExitOnError)
	state := stateFlag(fs)
	cardID := fs.String("card", "", "Card ID")
	month := fs.String("month", "", "Invoice month (YYYY-MM)")
	fs.Parse(os.Args[2:])

	if *cardID == "" || *month == "" {
		log.Fatal().Msg("Usage: cli pay-invoice -card ID -month YYYY-MM")
	}

	ctx := context.Background()
	st := loadState(ctx, log, *state)
	ledger := engine.NewLedger(st, log)

	result, err := ledger.PayInvoice(ctx, *cardID, *month)
	if err != nil {
		log.Fatal().Err(err).Msg("Invoice settlement failed")
	}
	if !result.Applied {
		fmt.Printf("Nothing settled: %s\n", result.Reason)
		return
	}

	saveState(ctx, log, st, *state)
	fmt.Printf("Settled %s across %d installments\n", result.Total.StringFixed(2), result.Installments)
}

func runPay(log zerolog.Logger) {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	state := stateFlag(fs)
	txID := fs.String("tx", "", "Transaction ID")
	seq := fs.Int("seq", 0, "Installment sequence number")
	amount := fs.String("amount", "", "Amount paid (defaults to the installment amount)")
	fs.Parse(os.Args[2:])

	if *txID == "" || *seq < 1 {
		log.Fatal().Msg("Usage: cli pay -tx ID -seq N [-amount X]")
	}

	ctx := context.Background()
	st := loadState(ctx, log, *state)
	ledger := engine.NewLedger(st, log)

	paid := decimal.Decimal{}
	if *amount != "" {
		paid = parseDecimal(log, "amount", *amount)
	} else {
		tx, err := st.GetTransaction(ctx, *txID)
		if err != nil {
			log.Fatal().Err(err).Msg("Transaction not found")
		}
		for _, inst := range tx.Installments {
			if inst.SequenceNumber == *seq {
				paid = inst.Amount
			}
		}
		if paid.IsZero() {
			log.Fatal().Int("seq", *seq).Msg("No such installment")
		}
	}

	result, err := ledger.PayInstallment(ctx, *txID, *seq, paid)
	if err != nil {
		log.Fatal().Err(err).Msg("Payment failed")
	}
	if !result.Applied {
		fmt.Printf("Not applied: %s\n", result.Reason)
		return
	}

	saveState(ctx, log, st, *state)
	fmt.Printf("Paid installment %d of %s (%s)\n", *seq, *txID, paid.StringFixed(2))
	if result.Warning != "" {
		fmt.Printf("Warning: %s\n", result.Warning)
	}
}

func runTransfer(log zerolog.Logger) {
	fs := flag.NewFlagSet("transfer", flag.ExitOnError)
	state := stateFlag(fs)
	from := fs.String("from", "", "Source account ID")
	to := fs.String("to", "", "Destination account ID")
	amount := fs.String("amount", "", "Amount to move")
	dateStr := fs.String("date", "", "Transfer date (YYYY-MM-DD, defaults to today)")
	fs.Parse(os.Args[2:])

	if *from == "" || *to == "" || *amount == "" {
		log.Fatal().Msg("Usage: cli transfer -from ID -to ID -amount X [-date YYYY-MM-DD]")
	}

	date := domain.Today()
	if *dateStr != "" {
		var err error
		if date, err = domain.ParseDate(*dateStr); err != nil {
			log.Fatal().Err(err).Msg("Invalid -date, want YYYY-MM-DD")
		}
	}

	ctx := context.Background()
	st := loadState(ctx, log, *state)
	ledger := engine.NewLedger(st, log)

	result, err := ledger.Transfer(ctx, *from, *to, parseDecimal(log, "amount", *amount), date)
	if err != nil {
		log.Fatal().Err(err).Msg("Transfer failed")
	}
	if !result.Applied {
		fmt.Printf("Not applied: %s\n", result.Reason)
		return
	}

	saveState(ctx, log, st, *state)
	fmt.Printf("Transferred %s from %s to %s\n", *amount, *from, *to)
}

func runSettle(log zerolog.Logger) {
	fs := flag.NewFlagSet("settle", flag.ExitOnError)
	state := stateFlag(fs)
	txID := fs.String("tx", "", "Transaction ID")
	total := fs.String("total", "", "Total actually paid for the whole schedule")
	fs.Parse(os.Args[2:])

	if *txID == "" || *total == "" {
		log.Fatal().Msg("Usage: cli settle -tx ID -total X")
	}

	ctx := context.Background()
	st := loadState(ctx, log, *state)
	ledger := engine.NewLedger(st, log)

	result, err := ledger.SettleTransaction(ctx, *txID, parseDecimal(log, "total", *total))
	if err != nil {
		log.Fatal().Err(err).Msg("Settlement failed")
	}
	if !result.Applied {
		fmt.Printf("Not applied: %s\n", result.Reason)
		return
	}

	saveState(ctx, log, st, *state)
	fmt.Printf("Settled %s with total %s\n", *txID, *total)
}

func runExport(log zerolog.Logger) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	state := stateFlag(fs)
	bucket := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name (or set GCS_BUCKET env)")
	object := fs.String("object", "", "GCS object name (defaults to a timestamped name)")
	fs.Parse(os.Args[2:])

	if *bucket == "" {
		log.Fatal().Msg("Usage: cli export -bucket NAME [-object NAME]")
	}
	if *object == "" {
		*object = fmt.Sprintf("snapshots/carteira-%s.json", time.Now().UTC().Format("20060102-150405"))
	}

	ctx := context.Background()
	st := loadState(ctx, log, *state)

	snap, err := backup.Export(ctx, st)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to export state")
	}
	if err := backup.SaveToGCS(ctx, snap, *bucket, *object); err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Exported to gs://%s/%s\n", *bucket, *object)
}

func runImport(log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	state := stateFlag(fs)
	bucket := fs.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket name (or set GCS_BUCKET env)")
	object := fs.String("object", "", "GCS object name")
	fs.Parse(os.Args[2:])

	if *bucket == "" || *object == "" {
		log.Fatal().Msg("Usage: cli import -bucket NAME -object NAME")
	}
	if *state == "" {
		log.Fatal().Msg("Error: -state is required (or set CARTEIRA_STATE)")
	}

	ctx := context.Background()
	snap, err := backup.LoadFromGCS(ctx, *bucket, *object)
	if err != nil {
		log.Fatal().Err(err).Msg("Download failed")
	}
	if err := backup.SaveToFile(snap, *state); err != nil {
		log.Fatal().Err(err).Str("path", *state).Msg("Failed to save state")
	}

	fmt.Printf("Imported gs://%s/%s to %s\n", *bucket, *object, *state)
}

func runChat(log zerolog.Logger) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	state := stateFlag(fs)
	fs.Parse(os.Args[2:])

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		log.Fatal().Msg("Usage: cli chat [-state PATH] your question here")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st := loadState(ctx, log, *state)
	assist := assistant.New(st, log)

	answer, err := assist.Ask(ctx, question)
	if err != nil {
		log.Fatal().Err(err).Msg("Assistant request failed")
	}

	fmt.Println(answer)
}
