package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/api/middleware"
	"github.com/carteira-app/carteira/internal/engine"
	"github.com/carteira-app/carteira/internal/jobs"
	"github.com/carteira-app/carteira/internal/store"
)

// CardsHandler handles card and invoice endpoints.
type CardsHandler struct {
	st        store.Store
	ledger    *engine.Ledger
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewCardsHandler creates a new cards handler.
func NewCardsHandler(st store.Store, ledger *engine.Ledger, publisher jobs.Publisher, log zerolog.Logger) *CardsHandler {
	return &CardsHandler{
		st:        st,
		ledger:    ledger,
		publisher: publisher,
		log:       log,
	}
}

// ListCards handles GET /api/cards
func (h *CardsHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	includeDeleted := r.URL.Query().Get("include_deleted") == "true"
	cards, err := h.st.ListCards(ctx, includeDeleted)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"cards": cards,
		"count": len(cards),
	})
}

// CreateCard handles POST /api/cards
func (h *CardsHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		ClosingDay int    `json:"closing_day"`
		DueDay     int    `json:"due_day"`
		Limit      string `json:"limit"`
		AccountID  string `json:"account_id"`
		IsDefault  bool   `json:"is_default"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	limit := decimal.Zero
	if req.Limit != "" {
		var ok bool
		if limit, ok = parseAmount(req.Limit); !ok {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
	}

	ctx := r.Context()
	card, err := h.ledger.CreateCard(ctx, engine.CreateCardInput{
		ID:         req.ID,
		Name:       req.Name,
		ClosingDay: req.ClosingDay,
		DueDay:     req.DueDay,
		Limit:      limit,
		AccountID:  req.AccountID,
		IsDefault:  req.IsDefault,
	})
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	publishEntity(ctx, h.publisher, h.log, jobs.EntityCard, card.ID, card)
	middleware.WriteJSON(w, http.StatusCreated, card)
}

// DeleteCard handles DELETE /api/cards/{id}
func (h *CardsHandler) DeleteCard(w http.ResponseWriter, r *http.Request, cardID string) {
	ctx := r.Context()

	result, err := h.ledger.DeleteCard(ctx, cardID)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	if result.Applied {
		// Soft delete: mirror the tombstoned snapshot rather than removing it.
		if card, err := h.st.GetCard(ctx, cardID); err == nil {
			publishEntity(ctx, h.publisher, h.log, jobs.EntityCard, card.ID, card)
		}
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// GetInvoice handles GET /api/cards/{id}/invoice?month=YYYY-MM
func (h *CardsHandler) GetInvoice(w http.ResponseWriter, r *http.Request, cardID string) {
	month := r.URL.Query().Get("month")
	if month == "" {
		middleware.WriteError(w, http.StatusBadRequest, "month query parameter is required")
		return
	}

	view, err := h.ledger.Invoice(r.Context(), cardID, month)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, view)
}

// PayInvoice handles POST /api/cards/{id}/invoice/pay
func (h *CardsHandler) PayInvoice(w http.ResponseWriter, r *http.Request, cardID string) {
	var req struct {
		Month string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Month == "" {
		middleware.WriteError(w, http.StatusBadRequest, "month is required")
		return
	}

	ctx := r.Context()
	result, err := h.ledger.PayInvoice(ctx, cardID, req.Month)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	if result.Applied {
		h.mirrorInvoiceEffects(r, cardID, result.TransactionID)
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// ReverseInvoice handles POST /api/cards/{id}/invoice/reverse
func (h *CardsHandler) ReverseInvoice(w http.ResponseWriter, r *http.Request, cardID string) {
	var req struct {
		Month string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Month == "" {
		middleware.WriteError(w, http.StatusBadRequest, "month is required")
		return
	}

	ctx := r.Context()
	result, err := h.ledger.ReverseInvoicePayment(ctx, cardID, req.Month)
	if err != nil {
		writeEngineError(w, h.log, err)
		return
	}

	if result.Applied {
		// The consolidated transaction is gone; mirror its removal together
		// with the refreshed covered transactions and account balance.
		publishDelete(ctx, h.publisher, h.log, jobs.EntityTransaction, result.TransactionID)
		h.mirrorInvoiceEffects(r, cardID, "")
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// mirrorInvoiceEffects republishes the card's transactions and settlement
// account after an invoice payment or reversal touched them in bulk.
func (h *CardsHandler) mirrorInvoiceEffects(r *http.Request, cardID, consolidatedTxID string) {
	ctx := r.Context()

	card, err := h.st.GetCard(ctx, cardID)
	if err != nil {
		h.log.Error().Err(err).Str("card_id", cardID).Msg("Failed to reload card for mirroring")
		return
	}
	publishAccount(ctx, h.st, h.publisher, h.log, card.AccountID)

	txs, err := h.st.ListTransactions(ctx, card.AccountID)
	if err != nil {
		h.log.Error().Err(err).Str("card_id", cardID).Msg("Failed to list transactions for mirroring")
		return
	}
	for _, tx := range txs {
		if tx.CardID == cardID || tx.ID == consolidatedTxID {
			publishEntity(ctx, h.publisher, h.log, jobs.EntityTransaction, tx.ID, tx)
		}
	}
}
