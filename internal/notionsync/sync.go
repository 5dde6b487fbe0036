package notionsync

import (
	"context"
	"fmt"
	"sort"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"

	"github.com/carteira-app/carteira/internal/engine"
	"github.com/carteira-app/carteira/internal/logger"
	"github.com/carteira-app/carteira/internal/store"
)

// SyncInvoices mirrors the open card invoices into a Notion database. One
// page per card and invoice month; pages whose invoice has been fully paid
// are archived. Sync Key makes reruns idempotent.
func SyncInvoices(ctx context.Context, st store.Store, notionClient NotionService, notionDBID string, dryRun bool) error {
	log := logger.FromContext(ctx)

	summaries, err := buildInvoiceSummaries(ctx, st)
	if err != nil {
		return fmt.Errorf("failed to build invoice summaries: %w", err)
	}

	log.Info().
		Int("invoice_count", len(summaries)).
		Bool("dry_run", dryRun).
		Msg("Starting invoice sync to Notion")

	valid := make(map[string]bool, len(summaries))
	for _, inv := range summaries {
		valid[inv.SyncKey()] = true
	}

	notionPages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(notionPages)).Msg("Retrieved existing Notion pages")

	existing := make(map[string]string, len(notionPages))
	var archived int
	for _, page := range notionPages {
		key := extractSyncKey(page)
		if key != "" && valid[key] {
			existing[key] = string(page.ID)
			continue
		}
		// Page has no sync key or its invoice no longer has open items.
		if dryRun {
			log.Info().Str("page_id", string(page.ID)).Str("sync_key", key).Msg("[DRY RUN] Would archive stale invoice page")
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Error().Err(err).Str("page_id", string(page.ID)).Msg("Failed to archive stale invoice page")
			continue
		}
		archived++
	}

	var created, updated int
	for _, inv := range summaries {
		props := InvoiceToNotionProperties(inv)

		if pageID, ok := existing[inv.SyncKey()]; ok {
			if dryRun {
				log.Info().Str("sync_key", inv.SyncKey()).Msg("[DRY RUN] Would update invoice page")
				continue
			}
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Error().Err(err).Str("sync_key", inv.SyncKey()).Msg("Failed to update invoice page")
				continue
			}
			updated++
			continue
		}

		if dryRun {
			log.Info().Str("sync_key", inv.SyncKey()).Msg("[DRY RUN] Would create invoice page")
			continue
		}
		if _, err := notionClient.CreatePage(ctx, notionDBID, props); err != nil {
			log.Error().Err(err).Str("sync_key", inv.SyncKey()).Msg("Failed to create invoice page")
			continue
		}
		created++
	}

	log.Info().
		Int("created", created).
		Int("updated", updated).
		Int("archived", archived).
		Msg("Invoice sync to Notion complete")

	return nil
}

// buildInvoiceSummaries buckets every open card installment into its invoice
// month and aggregates per card and month.
func buildInvoiceSummaries(ctx context.Context, st store.Store) ([]*InvoiceSummary, error) {
	cards, err := st.ListCards(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("buildInvoiceSummaries: listing cards: %w", err)
	}

	var summaries []*InvoiceSummary
	for _, card := range cards {
		pending, err := st.ListPendingInstallments(ctx, "", card.ID)
		if err != nil {
			return nil, fmt.Errorf("buildInvoiceSummaries: listing pending for %s: %w", card.ID, err)
		}

		byMonth := make(map[string]*InvoiceSummary)
		for _, p := range pending {
			monthKey := engine.InvoiceMonthKey(p.Installment.PostingDate, card.ClosingDay)
			inv, ok := byMonth[monthKey]
			if !ok {
				inv = &InvoiceSummary{
					CardID:   card.ID,
					CardName: card.Name,
					MonthKey: monthKey,
					Total:    decimal.Zero,
				}
				byMonth[monthKey] = inv
			}
			inv.Total = inv.Total.Add(p.Installment.Amount)
			inv.ItemCount++
			inv.DueDate = engine.InvoiceDueDate(p.Installment.PostingDate, card.ClosingDay, card.DueDay)
		}

		for _, inv := range byMonth {
			summaries = append(summaries, inv)
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CardID != summaries[j].CardID {
			return summaries[i].CardID < summaries[j].CardID
		}
		return summaries[i].MonthKey < summaries[j].MonthKey
	})

	return summaries, nil
}

// queryAllNotionPages pages through the whole database.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
