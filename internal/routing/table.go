package routing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Entry holds the routing information for a single country: the agent who
// handles inquiries from it and, where one exists, the local distributor's
// email address. Either field may be empty.
type Entry struct {
	CountryCode      string
	AgentID          string
	DistributorEmail string
}

// Table maps ISO-2 country codes to routing entries. It is loaded once at
// startup and immutable afterwards, so lookups need no locking.
type Table struct {
	entries map[string]Entry
}

// NewTable builds a table from a list of entries. Country codes are
// normalized to uppercase; entries without a country code are skipped.
func NewTable(entries []Entry) *Table {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		code := strings.ToUpper(strings.TrimSpace(e.CountryCode))
		if code == "" {
			continue
		}
		e.CountryCode = code
		t.entries[code] = e
	}
	return t
}

// Load reads routing entries from a CSV file with a
// country_code,agent_id,distributor_email header row.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open routing file: %w", err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read routing header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	codeIdx, ok := col["country_code"]
	if !ok {
		return nil, fmt.Errorf("routing file has no country_code column")
	}

	var entries []Entry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read routing record: %w", err)
		}

		e := Entry{CountryCode: field(record, codeIdx)}
		if i, ok := col["agent_id"]; ok {
			e.AgentID = field(record, i)
		}
		if i, ok := col["distributor_email"]; ok {
			e.DistributorEmail = field(record, i)
		}
		entries = append(entries, e)
	}

	return NewTable(entries), nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Lookup returns the agent ID and distributor email for a country code.
// Matching is case-insensitive. An unknown or empty code returns empty
// strings; a present entry with empty fields is a valid "country known,
// no distributor" result.
func (t *Table) Lookup(countryCode string) (agentID, distributorEmail string) {
	code := strings.ToUpper(strings.TrimSpace(countryCode))
	if code == "" {
		return "", ""
	}
	e, ok := t.entries[code]
	if !ok {
		return "", ""
	}
	return e.AgentID, e.DistributorEmail
}

// Len returns the number of countries in the table.
func (t *Table) Len() int {
	return len(t.entries)
}
