// Package export publishes completed reports to external systems.
package export

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/pkg/notion"
)

// Notion database property names.
const (
	PropName      = "Name"
	PropDomain    = "Domain"
	PropOutlook   = "Outlook"
	PropSummary   = "Summary"
	PropGrowth    = "Growth"
	PropTeam      = "Team"
	PropMarket    = "Market"
	PropProduct   = "Product"
	PropRiskLevel = "Risk Level"
	PropDegraded  = "Degraded"
)

const maxSummaryRune = 2000

// NotionExporter upserts one page per company domain in a Notion database.
type NotionExporter struct {
	client notion.Client
	dbID   string
}

// NewNotionExporter creates an exporter writing to dbID.
func NewNotionExporter(client notion.Client, dbID string) *NotionExporter {
	return &NotionExporter{client: client, dbID: dbID}
}

// Export creates the company's page, or updates it when a page with the same
// domain already exists.
func (e *NotionExporter) Export(ctx context.Context, report *model.Report) error {
	if report == nil {
		return eris.New("export: nil report")
	}
	log := zap.L().With(zap.String("company", report.Name), zap.String("domain", report.Domain))
	props := reportProperties(report)

	var existing *notionapi.Page
	if report.Domain != "" {
		var err error
		existing, err = notion.FindPageByText(ctx, e.client, e.dbID, PropDomain, report.Domain)
		if err != nil {
			return eris.Wrap(err, "export: lookup page")
		}
	}

	if existing != nil {
		if _, err := e.client.UpdatePage(ctx, string(existing.ID), &notionapi.PageUpdateRequest{Properties: props}); err != nil {
			return eris.Wrapf(err, "export: update page for %s", report.Domain)
		}
		log.Info("export: updated notion page", zap.String("page_id", string(existing.ID)))
		return nil
	}

	page, err := e.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(e.dbID),
		},
		Properties: props,
	})
	if err != nil {
		return eris.Wrapf(err, "export: create page for %s", report.Name)
	}
	log.Info("export: created notion page", zap.String("page_id", string(page.ID)))
	return nil
}

func reportProperties(r *model.Report) notionapi.Properties {
	return notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(r.Name),
		},
		PropDomain: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(r.Domain),
		},
		PropOutlook: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: r.Outlook.Level},
		},
		PropSummary: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(truncate(r.Outlook.Summary, maxSummaryRune)),
		},
		PropGrowth:  number(r.Indicators.Growth),
		PropTeam:    number(r.Indicators.Team),
		PropMarket:  number(r.Indicators.Market),
		PropProduct: number(r.Indicators.Product),
		PropRiskLevel: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: r.Risks.OverallRiskLevel},
		},
		PropDegraded: notionapi.CheckboxProperty{
			Type:     notionapi.PropertyTypeCheckbox,
			Checkbox: r.Degraded(),
		},
	}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

func number(n int) notionapi.NumberProperty {
	return notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: float64(n)}
}

// truncate caps s at n runes; Notion rejects longer rich-text segments.
func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
