package notion

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// csvRow is one record keyed by its header names.
type csvRow map[string]string

// field returns the first value whose header matches any of the given
// names, ignoring case and surrounding whitespace.
func (r csvRow) field(names ...string) (string, bool) {
	for _, want := range names {
		for k, v := range r {
			if strings.EqualFold(strings.TrimSpace(k), want) {
				return v, true
			}
		}
	}
	return "", false
}

// ImportCSV loads a CSV file into a Notion database, one page per row.
// Rows are deduplicated on their URL or Domain column when one exists.
// Files with a Domain header are treated as lead lists and get the
// lead-queue property mapping with Status set to Queued; anything else
// imports column for column. Returns the number of pages created.
func ImportCSV(ctx context.Context, c Client, dbID string, csvPath string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return 0, eris.Wrapf(err, "notion: open csv %s", csvPath)
	}
	defer f.Close() //nolint:errcheck

	rows, isLead, err := readRows(csv.NewReader(f))
	if err != nil {
		return 0, err
	}

	created := 0
	for _, row := range rows {
		if ctx.Err() != nil {
			return created, eris.Wrap(ctx.Err(), "notion: import csv cancelled")
		}

		var props notionapi.Properties
		if isLead {
			props = leadProperties(row)
		} else {
			props = pageProperties(row)
		}
		req := &notionapi.PageCreateRequest{
			Parent: notionapi.Parent{
				Type:       notionapi.ParentTypeDatabaseID,
				DatabaseID: notionapi.DatabaseID(dbID),
			},
			Properties: props,
		}
		if _, err := c.CreatePage(ctx, req); err != nil {
			return created, eris.Wrap(err, "notion: create page from csv row")
		}
		created++
	}
	return created, nil
}

// readRows streams the file, keys each record by the header row, and
// drops records whose URL/Domain cell is blank or already seen. The
// second return reports whether the file is a lead list.
func readRows(r *csv.Reader) ([]csvRow, bool, error) {
	headers, err := r.Read()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "notion: read csv header")
	}

	keyIdx, isLead := -1, false
	for i, h := range headers {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "domain":
			isLead = true
			if keyIdx < 0 {
				keyIdx = i
			}
		case "url":
			if keyIdx < 0 {
				keyIdx = i
			}
		}
	}

	var rows []csvRow
	seen := make(map[string]struct{})
	for {
		record, err := r.Read()
		if err == io.EOF {
			return rows, isLead, nil
		}
		if err != nil {
			return nil, false, eris.Wrap(err, "notion: read csv")
		}

		if keyIdx >= 0 {
			key := ""
			if keyIdx < len(record) {
				key = strings.TrimSpace(record[keyIdx])
			}
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}

		row := make(csvRow, len(headers))
		for i, h := range headers {
			if i < len(record) {
				row[h] = record[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
}

func titleProp(name string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type: notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: name}},
		},
	}
}

func richTextProp(v string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type: notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}},
		},
	}
}

// pageProperties maps a generic row onto Notion properties. "Name"
// becomes the title, "URL" a url property, everything else rich text.
func pageProperties(row csvRow) notionapi.Properties {
	props := make(notionapi.Properties, len(row))
	for k, v := range row {
		switch {
		case strings.EqualFold(k, "Name"):
			props[k] = titleProp(v)
		case strings.EqualFold(k, "URL"):
			props[k] = notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: v}
		default:
			props[k] = richTextProp(v)
		}
	}
	return props
}

// leadProperties maps a lead row onto the queue database's schema:
// Name/Company becomes the title, Domain the URL, Status starts Queued,
// and the remaining non-empty columns pass through as rich text.
func leadProperties(row csvRow) notionapi.Properties {
	props := make(notionapi.Properties, len(row)+1)
	claimed := make(map[string]bool, 2)

	if name, ok := row.field("Name", "Company"); ok {
		props["Name"] = titleProp(strings.Trim(strings.TrimSpace(name), `"`))
		for k := range row {
			if strings.EqualFold(k, "Name") || strings.EqualFold(k, "Company") {
				claimed[k] = true
			}
		}
	}
	if domain, ok := row.field("Domain"); ok {
		props["URL"] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  normalizeURL(domain),
		}
		for k := range row {
			if strings.EqualFold(k, "Domain") {
				claimed[k] = true
			}
		}
	}

	// Queued is what the batch command polls for.
	props["Status"] = notionapi.StatusProperty{
		Status: notionapi.Status{Name: "Queued"},
	}

	for k, v := range row {
		if claimed[k] || v == "" {
			continue
		}
		props[k] = richTextProp(v)
	}
	return props
}

// normalizeURL prefixes a bare domain with https://.
func normalizeURL(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" || strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain
}
