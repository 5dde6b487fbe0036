package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/carteira-app/carteira/internal/api/handlers"
	"github.com/carteira-app/carteira/internal/api/middleware"
	"github.com/carteira-app/carteira/internal/assistant"
	"github.com/carteira-app/carteira/internal/backup"
	"github.com/carteira-app/carteira/internal/engine"
	infraBQ "github.com/carteira-app/carteira/internal/infra/bigquery"
	"github.com/carteira-app/carteira/internal/jobs"
	jobsmem "github.com/carteira-app/carteira/internal/jobs/inmemory"
	"github.com/carteira-app/carteira/internal/logger"
	"github.com/carteira-app/carteira/internal/store/inmemory"
)

func main() {
	// Parse command-line flags
	var (
		port      = flag.String("port", "8080", "HTTP server port")
		statePath = flag.String("state", os.Getenv("CARTEIRA_STATE"), "Path to the ledger snapshot file (or set CARTEIRA_STATE env)")
		mirror    = flag.Bool("mirror", os.Getenv("CARTEIRA_MIRROR") == "true", "Mirror mutations to BigQuery (or set CARTEIRA_MIRROR=true)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	ctx := context.Background()

	// Load the ledger state
	st := inmemory.NewStore()
	if *statePath != "" {
		snap, err := backup.LoadFromFile(*statePath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Info().Str("path", *statePath).Msg("No snapshot found, starting with an empty ledger")
		case err != nil:
			log.Fatal().Err(err).Str("path", *statePath).Msg("Failed to load snapshot")
		default:
			if err := backup.Restore(ctx, st, snap); err != nil {
				log.Fatal().Err(err).Str("path", *statePath).Msg("Failed to restore snapshot")
			}
			log.Info().
				Str("path", *statePath).
				Int("accounts", len(snap.Accounts)).
				Int("transactions", len(snap.Transactions)).
				Msg("Snapshot restored")
		}
	} else {
		log.Warn().Msg("No state file configured - ledger state will not survive restarts")
	}

	ledger := engine.NewLedger(st, log)

	// Initialize job infrastructure. Jobs are produced only when mirroring
	// is enabled; the local store stays authoritative either way.
	jobStore := jobsmem.NewStore()
	jobQueue := jobsmem.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var publisher jobs.Publisher
	if *mirror {
		bqMirror, err := infraBQ.NewMirror(ctx, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery mirror")
		}
		defer bqMirror.Close()

		publisher = jobQueue

		go func() {
			log.Info().Msg("Starting mirror worker")
			if err := jobQueue.Start(workerCtx, bqMirror.Handle); err != nil {
				log.Error().Err(err).Msg("Mirror worker stopped with error")
			}
		}()
	} else {
		log.Info().Msg("BigQuery mirroring disabled")
	}

	// The assistant needs a Gemini API key; without one the chat endpoint
	// reports unavailable.
	var assist *assistant.Assistant
	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		assist = assistant.New(st, log)
	} else {
		log.Warn().Msg("No Gemini API key configured - chat endpoint will be disabled")
	}

	// Initialize handlers
	accountsHandler := handlers.NewAccountsHandler(st, ledger, publisher, log)
	cardsHandler := handlers.NewCardsHandler(st, ledger, publisher, log)
	transactionsHandler := handlers.NewTransactionsHandler(st, ledger, publisher, log)
	recurringHandler := handlers.NewRecurringHandler(st, ledger, assist, publisher, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router
	mux := http.NewServeMux()

	// Accounts endpoints
	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.ListAccounts(w, r)
		case http.MethodPost:
			accountsHandler.CreateAccount(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		accountID, sub, _ := strings.Cut(rest, "/")
		if accountID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Account ID is required")
			return
		}
		if r.Method == http.MethodGet && sub == "events" {
			accountsHandler.ListAccountEvents(w, r, accountID)
			return
		}
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	mux.HandleFunc("/api/transfers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			accountsHandler.Transfer(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Cards endpoints
	mux.HandleFunc("/api/cards", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cardsHandler.ListCards(w, r)
		case http.MethodPost:
			cardsHandler.CreateCard(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/cards/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/cards/")
		cardID, sub, _ := strings.Cut(rest, "/")
		if cardID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Card ID is required")
			return
		}
		switch {
		case r.Method == http.MethodDelete && sub == "":
			cardsHandler.DeleteCard(w, r, cardID)
		case r.Method == http.MethodGet && sub == "invoice":
			cardsHandler.GetInvoice(w, r, cardID)
		case r.Method == http.MethodPost && sub == "invoice/pay":
			cardsHandler.PayInvoice(w, r, cardID)
		case r.Method == http.MethodPost && sub == "invoice/reverse":
			cardsHandler.ReverseInvoice(w, r, cardID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Transactions endpoints
	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		txID, sub, _ := strings.Cut(rest, "/")
		if txID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch {
		case r.Method == http.MethodDelete && sub == "":
			transactionsHandler.DeleteTransaction(w, r, txID)
		case r.Method == http.MethodPost && sub == "settle":
			transactionsHandler.SettleTransaction(w, r, txID)
		case r.Method == http.MethodPost && strings.HasPrefix(sub, "installments/"):
			parts := strings.Split(sub, "/")
			if len(parts) != 3 {
				middleware.WriteError(w, http.StatusBadRequest, "Expected installments/{sequence}/pay or /reverse")
				return
			}
			sequence, err := strconv.Atoi(parts[1])
			if err != nil || sequence < 1 {
				middleware.WriteError(w, http.StatusBadRequest, "Invalid installment sequence")
				return
			}
			switch parts[2] {
			case "pay":
				transactionsHandler.PayInstallment(w, r, txID, sequence)
			case "reverse":
				transactionsHandler.ReverseInstallment(w, r, txID, sequence)
			default:
				middleware.WriteError(w, http.StatusBadRequest, "Expected installments/{sequence}/pay or /reverse")
			}
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/installments/pending", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			transactionsHandler.ListPendingInstallments(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Recurring endpoints
	mux.HandleFunc("/api/recurring", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			recurringHandler.ListRecurringItems(w, r)
		case http.MethodPost:
			recurringHandler.CreateRecurringItem(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/recurring/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			recurringHandler.RunRecurring(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/projection", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			recurringHandler.Project(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			recurringHandler.Chat(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	cancelWorker()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	// Persist the final ledger state
	if *statePath != "" {
		snap, err := backup.Export(ctx, st)
		if err != nil {
			log.Error().Err(err).Msg("Failed to export ledger state")
		} else if err := backup.SaveToFile(snap, *statePath); err != nil {
			log.Error().Err(err).Str("path", *statePath).Msg("Failed to save snapshot")
		} else {
			log.Info().Str("path", *statePath).Msg("Snapshot saved")
		}
	}

	log.Info().Msg("Server exited")
}
