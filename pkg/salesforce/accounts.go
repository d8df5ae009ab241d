package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Account is the subset of the Salesforce Account object the sync step
// reads and writes.
type Account struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	Website     string `json:"Website"`
	Industry    string `json:"Industry"`
	Description string `json:"Description"`
	Type        string `json:"Type"`
}

var accountColumns = []string{"Id", "Name", "Website", "Industry", "Description", "Type"}

// FindAccountByWebsite returns the Account whose Website matches, or
// (nil, nil) when no such account exists.
func FindAccountByWebsite(ctx context.Context, c Client, website string) (*Account, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Account WHERE Website LIKE '%s' LIMIT 1",
		strings.Join(accountColumns, ", "),
		soqlEscape(website),
	)

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrapf(err, "salesforce: find account by website %s", website)
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// soqlEscape escapes single quotes so user-supplied domains cannot break
// out of a SOQL string literal.
func soqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
