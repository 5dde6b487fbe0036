package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/carteira-app/carteira/internal/api/middleware"
	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/engine"
	"github.com/carteira-app/carteira/internal/jobs"
	"github.com/carteira-app/carteira/internal/store"
)

// TransactionsHandler handles transaction and installment endpoints.
type TransactionsHandler struct {
	st        store.Store
	ledger    *engine.Ledger
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(st store.Store, ledger *engine.Ledger, publisher jobs.Publisher, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		st:        st,
		ledger:    ledger,
		publisher: publisher,
		log:       log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	transactions, err := h.st.ListTransactions(ctx, r.URL.Query().Get("account_id"))
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// ListPendingInstallments handles GET /api/installments/pending
func (h *TransactionsHandler) ListPendingInstallments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	pending, err := h.st.ListPendingInstallments(ctx, query.Get("account_id"), query.Get("card_id"))
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"installments": pending,
		"count":        len(pending),
	})
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description       string `json:"description"`
		Amount            string `json:"amount"`
		Date              string `json:"date"`
		InstallmentsCount int    `json:"installments_count"`
		Kind              string `json:"kind"`
		IsIncome          bool   `json:"is_income"`
		AccountID         string `json:"account_id"`
		CardID            string `json:"card_id"`
		CategoryID        string `json:"category_id"`
		PaidAtEntry       bool   `json:"paid_at_entry"`
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
	tx, err := h.ledger.CreateTransaction(ctx, engine.CreateTransactionInput{
		Description:       req.Description,
		Amount:            amount,
		Date:              date,
		InstallmentsCount: req.InstallmentsCount,
		Kind:              domain.TransactionKind(req.Kind),
		IsIncome:          req.IsIncome,
		AccountID:         req.AccountID,
		CardID:            req.CardID,
		CategoryID:        req.CategoryID,
		PaidAtEntry:       req.PaidAtEntry,
	})
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	publishEntity(ctx, h.publisher, h.log, jobs.EntityTransaction, tx.ID, tx)
	if req.PaidAtEntry {
		publishAccount(ctx, h.st, h.publisher, h.log, tx.AccountID)
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, txID string) {
	ctx := r.Context()

	result, err := h.ledger.DeleteTransaction(ctx, txID)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	if result.Applied {
		publishDelete(ctx, h.publisher, h.log, jobs.EntityTransaction, txID)
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// PayInstallment handles POST /api/transactions/{id}/installments/{seq}/pay
func (h *TransactionsHandler) PayInstallment(w http.ResponseWriter, r *http.Request, txID string, sequence int) {
	var req struct {
		Amount string `json:"amount"`
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

	ctx := r.Context()
	result, err := h.ledger.PayInstallment(ctx, txID, sequence, amount)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	if result.Applied {
		h.mirrorTransactionEffects(r, txID)
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// ReverseInstallment handles POST /api/transactions/{id}/installments/{seq}/reverse
func (h *TransactionsHandler) ReverseInstallment(w http.ResponseWriter, r *http.Request, txID string, sequence int) {
	ctx := r.Context()

	result, err := h.ledger.ReverseInstallmentPayment(ctx, txID, sequence)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	if result.Applied {
		h.mirrorTransactionEffects(r, txID)
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// SettleTransaction handles POST /api/transactions/{id}/settle
func (h *TransactionsHandler) SettleTransaction(w http.ResponseWriter, r *http.Request, txID string) {
	var req struct {
		PaidTotal string `json:"paid_total"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	paidTotal, ok := parseAmount(req.PaidTotal)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid paid_total")
		return
	}

	ctx := r.Context()
	result, err := h.ledger.SettleTransaction(ctx, txID, paidTotal)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	if result.Applied {
		h.mirrorTransactionEffects(r, txID)
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// mirrorTransactionEffects republishes a transaction and its owning account
// after a settlement-style mutation.
func (h *TransactionsHandler) mirrorTransactionEffects(r *http.Request, txID string) {
	ctx := r.Context()

	tx, err := h.st.GetTransaction(ctx, txID)
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", txID).Msg("Failed to reload transaction for mirroring")
		return
	}
	publishEntity(ctx, h.publisher, h.log, jobs.EntityTransaction, tx.ID, tx)
	publishAccount(ctx, h.st, h.publisher, h.log, tx.AccountID)
}
