package notion

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Lead is a lead-queue row extracted from a Notion page.
type Lead struct {
	PageID   string
	Domain   string
	Name     string
	Vertical string
}

// LeadFromPage extracts a Lead from a lead-queue page. The URL property
// carries the domain; Name is the title; Vertical is optional rich text.
// Pages without a usable domain return an error.
func LeadFromPage(page notionapi.Page) (Lead, error) {
	lead := Lead{PageID: string(page.ID)}

	if urlProp, ok := page.Properties["URL"].(*notionapi.URLProperty); ok {
		lead.Domain = domainFromURL(urlProp.URL)
	}
	if lead.Domain == "" {
		return lead, eris.New(fmt.Sprintf("notion: page %s has no domain", page.ID))
	}

	if titleProp, ok := page.Properties["Name"].(*notionapi.TitleProperty); ok {
		lead.Name = plainText(titleProp.Title)
	}
	if rtProp, ok := page.Properties["Vertical"].(*notionapi.RichTextProperty); ok {
		lead.Vertical = plainText(rtProp.RichText)
	}

	return lead, nil
}

// MarkLeadStatus updates a lead page's Status property, optionally writing a
// note into the Notes rich text property.
func MarkLeadStatus(ctx context.Context, c Client, pageID, status, note string) error {
	props := notionapi.Properties{
		"Status": notionapi.StatusProperty{
			Status: notionapi.Status{Name: status},
		},
	}
	if note != "" {
		props["Notes"] = notionapi.RichTextProperty{
			Type: notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: note}},
			},
		}
	}

	req := &notionapi.PageUpdateRequest{Properties: props}
	if _, err := c.UpdatePage(ctx, pageID, req); err != nil {
		return eris.Wrap(err, fmt.Sprintf("notion: mark lead %s %s", pageID, status))
	}
	return nil
}

func plainText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range parts {
		b.WriteString(rt.PlainText)
		if rt.PlainText == "" && rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

func domainFromURL(raw string) string {
	d := strings.TrimSpace(strings.ToLower(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return strings.TrimPrefix(d, "www.")
}
