package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/carteira-app/carteira/internal/api/middleware"
	"github.com/carteira-app/carteira/internal/assistant"
	"github.com/carteira-app/carteira/internal/domain"
	"github.com/carteira-app/carteira/internal/engine"
	"github.com/carteira-app/carteira/internal/jobs"
	"github.com/carteira-app/carteira/internal/store"
)

// RecurringHandler handles recurring item, projection and chat endpoints.
type RecurringHandler struct {
	st        store.Store
	ledger    *engine.Ledger
	assist    *assistant.Assistant
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewRecurringHandler creates a new recurring handler.
func NewRecurringHandler(st store.Store, ledger *engine.Ledger, assist *assistant.Assistant, publisher jobs.Publisher, log zerolog.Logger) *RecurringHandler {
	return &RecurringHandler{
		st:        st,
		ledger:    ledger,
		assist:    assist,
		publisher: publisher,
		log:       log,
	}
}

// ListRecurringItems handles GET /api/recurring
func (h *RecurringHandler) ListRecurringItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.st.ListRecurringItems(ctx)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// CreateRecurringItem handles POST /api/recurring
func (h *RecurringHandler) CreateRecurringItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Kind        string `json:"kind"`
		IsIncome    bool   `json:"is_income"`
		AccountID   string `json:"account_id"`
		CardID      string `json:"card_id"`
		CategoryID  string `json:"category_id"`
		Day         int    `json:"day"`
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
	item, err := h.ledger.CreateRecurringItem(ctx, engine.CreateRecurringItemInput{
		ID:          req.ID,
		Description: req.Description,
		Amount:      amount,
		Kind:        domain.TransactionKind(req.Kind),
		IsIncome:    req.IsIncome,
		AccountID:   req.AccountID,
		CardID:      req.CardID,
		CategoryID:  req.CategoryID,
		Day:         req.Day,
	})
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	publishEntity(ctx, h.publisher, h.log, jobs.EntityRecurringItem, item.ID, item)
	middleware.WriteJSON(w, http.StatusCreated, item)
}

// RunRecurring handles POST /api/recurring/run
func (h *RecurringHandler) RunRecurring(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Today string `json:"today"`
	}
	// Body is optional; an empty body means "today".
	_ = json.NewDecoder(r.Body).Decode(&req)

	today := domain.Today()
	if req.Today != "" {
		var err error
		if today, err = domain.ParseDate(req.Today); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid today, want YYYY-MM-DD")
			return
		}
	}

	ctx := r.Context()
	report, err := h.ledger.RunRecurring(ctx, today)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	// Mirror every transaction the tick materialized plus the touched items
	// and accounts.
	for _, tx := range report.Transactions {
		publishEntity(ctx, h.publisher, h.log, jobs.EntityTransaction, tx.ID, tx)
		publishAccount(ctx, h.st, h.publisher, h.log, tx.AccountID)
	}
	if report.Fired > 0 {
		if items, err := h.st.ListRecurringItems(ctx); err == nil {
			for _, item := range items {
				publishEntity(ctx, h.publisher, h.log, jobs.EntityRecurringItem, item.ID, item)
			}
		}
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// Project handles GET /api/projection?months=N
func (h *RecurringHandler) Project(w http.ResponseWriter, r *http.Request) {
	months := 6
	if monthsStr := r.URL.Query().Get("months"); monthsStr != "" {
		parsed, err := strconv.Atoi(monthsStr)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid months")
			return
		}
		months = parsed
	}

	points, err := h.ledger.Project(r.Context(), months)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"projection": points,
	})
}

// Chat handles POST /api/chat
func (h *RecurringHandler) Chat(w http.ResponseWriter, r *http.Request) {
	if h.assist == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Assistant is not configured")
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" {
		middleware.WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.assist.Ask(r.Context(), req.Question)
	if err != nil {
		h.log.Error().Err(err).Msg("Assistant request failed")
		middleware.WriteError(w, http.StatusBadGateway, "Assistant request failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"answer": answer,
	})
}
