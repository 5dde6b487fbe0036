// Package handlers exposes the ledger engine over HTTP. Mutations run
// synchronously against the local store; affected entities are then queued
// for asynchronous mirroring to the hosted store.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/api/middleware"
	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/engine"
	"github.com/carteira-app/carteira/internal/jobs"
	"github.com/carteira-app/carteira/internal/store"
)

// writeEngineError maps engine and store errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, log zerolog.Logger, err error) {
	if engine.IsValidation(err) {
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
		return
	}
	log.Error().Err(err).Msg("Request failed")
	middleware.WriteError(w, http.StatusInternalServerError, "Internal error")
}

// parseAmount reads a decimal amount from its JSON string form.
func parseAmount(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// publishEntity enqueues one entity snapshot for mirroring. Failures are
// logged and swallowed: local state stays authoritative.
func publishEntity(ctx context.Context, pub jobs.Publisher, log zerolog.Logger, kind jobs.EntityKind, entityID string, entity interface{}) {
	if pub == nil {
		return
	}
	job, err := jobs.NewSyncJob(kind, entityID, entity)
	if err != nil {
		log.Error().Err(err).Str("entity_id", entityID).Msg("Failed to build sync job")
		return
	}
	if err := pub.PublishSync(ctx, job); err != nil {
		log.Error().Err(err).Str("entity_id", entityID).Msg("Failed to enqueue sync job")
	}
}

// publishDelete enqueues a hard-removal mirror job.
func publishDelete(ctx context.Context, pub jobs.Publisher, log zerolog.Logger, kind jobs.EntityKind, entityID string) {
	if pub == nil {
		return
	}
	job, err := jobs.NewSyncJob(kind, entityID, nil)
	if err != nil {
		log.Error().Err(err).Str("entity_id", entityID).Msg("Failed to build delete job")
		return
	}
	job.Delete = true
	if err := pub.PublishSync(ctx, job); err != nil {
		log.Error().Err(err).Str("entity_id", entityID).Msg("Failed to enqueue delete job")
	}
}

// publishAccount re-reads an account and mirrors its fresh balance.
func publishAccount(ctx context.Context, st store.Store, pub jobs.Publisher, log zerolog.Logger, accountID string) {
	if pub == nil || accountID == "" {
		return
	}
	acc, err := st.GetAccount(ctx, accountID)
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Msg("Failed to reload account for mirroring")
		return
	}
	publishEntity(ctx, pub, log, jobs.EntityAccount, acc.ID, acc)
}

// publishTransaction re-reads a transaction and mirrors its fresh schedule.
func publishTransaction(ctx context.Context, st store.Store, pub jobs.Publisher, log zerolog.Logger, txID string) {
	if pub == nil || txID == "" {
		return
	}
	tx, err := st.GetTransaction(ctx, txID)
	if err != nil {
		log.Error().Err(err).Str("transaction_id", txID).Msg("Failed to reload transaction for mirroring")
		return
	}
	publishEntity(ctx, pub, log, jobs.EntityTransaction, tx.ID, tx)
}

// AccountsHandler handles account endpoints.
type AccountsHandler struct {
	st        store.Store
	ledger    *engine.Ledger
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(st store.Store, ledger *engine.Ledger, publisher jobs.Publisher, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		st:        st,
		ledger:    ledger,
		publisher: publisher,
		log:       log,
	}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accounts, err := h.st.ListAccounts(ctx)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		OpeningBalance string `json:"opening_balance"`
		IsDefault      bool   `json:"is_default"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}

	opening := decimal.Zero
	if req.OpeningBalance != "" {
		var ok bool
		if opening, ok = parseAmount(req.OpeningBalance); !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid opening_balance")
			return
		}
	}

	ctx := r.Context()
	acc, err := h.ledger.CreateAccount(ctx, req.ID, req.Name, opening, req.IsDefault)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	publishEntity(ctx, h.publisher, h.log, jobs.EntityAccount, acc.ID, acc)
	middleware.WriteJSON(w, http.StatusCreated, acc)
}

// ListAccountEvents handles GET /api/accounts/{id}/events
func (h *AccountsHandler) ListAccountEvents(w http.ResponseWriter, r *http.Request, accountID string) {
	ctx := r.Context()

	if _, err := h.st.GetAccount(ctx, accountID); err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	events, err := h.st.ListLedgerEvents(ctx, accountID)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

// Transfer handles POST /api/transfers
func (h *AccountsHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID string `json:"from_account_id"`
		ToAccountID   string `json:"to_account_id"`
		Amount        string `json:"amount"`
		Date          string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount")
		return
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date, want YYYY-MM-DD")
		return
	}

	ctx := r.Context()
	result, err := h.ledger.Transfer(ctx, req.FromAccountID, req.ToAccountID, amount, date)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	if result.Applied {
		publishAccount(ctx, h.st, h.publisher, h.log, req.FromAccountID)
		publishAccount(ctx, h.st, h.publisher, h.log, req.ToAccountID)
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// JobsHandler handles sync-job endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		EntityID: query.Get("entity_id"),
		Status:   jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
