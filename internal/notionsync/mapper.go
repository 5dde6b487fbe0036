package notionsync

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// InvoiceSummary is one card invoice bucket rendered into Notion: the card,
// the invoice month and the open amount falling due.
type InvoiceSummary struct {
	CardID    string
	CardName  string
	MonthKey  string
	DueDate   civil.Date
	Total     decimal.Decimal
	ItemCount int
}

// SyncKey identifies the Notion page for this invoice across runs.
func (s *InvoiceSummary) SyncKey() string {
	return s.CardID + "|" + s.MonthKey
}

// InvoiceToNotionProperties converts an invoice summary to Notion properties.
// The Invoice title is human-readable; Sync Key carries the identity used for
// idempotent re-syncs.
func InvoiceToNotionProperties(inv *InvoiceSummary) notionapi.Properties {
	props := notionapi.Properties{
		"Invoice": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: fmt.Sprintf("%s %s", inv.CardName, inv.MonthKey),
					},
				},
			},
		},
		"Sync Key": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: inv.SyncKey(),
					},
				},
			},
		},
		"Total": notionapi.NumberProperty{
			Number: inv.Total.InexactFloat64(),
		},
		"Open Items": notionapi.NumberProperty{
			Number: float64(inv.ItemCount),
		},
	}

	if inv.CardName != "" {
		props["Card"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: inv.CardName,
			},
		}
	}

	if inv.DueDate.IsValid() {
		props["Due Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(time.Date(
						inv.DueDate.Year,
						inv.DueDate.Month,
						inv.DueDate.Day,
						0, 0, 0, 0, time.UTC,
					))
					return &d
				}(),
			},
		}
	}

	return props
}

// extractSyncKey reads the Sync Key property from a Notion page. Returns the
// empty string when absent, which marks the page as stale.
func extractSyncKey(page notionapi.Page) string {
	if prop, ok := page.Properties["Sync Key"]; ok {
		if richText, ok := prop.(*notionapi.RichTextProperty); ok {
			if len(richText.RichText) > 0 {
				return richText.RichText[0].PlainText
			}
		}
	}
	return ""
}
