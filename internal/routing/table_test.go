package routing

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookup_UnknownCountry(t *testing.T) {
	table := NewTable([]Entry{
		{CountryCode: "US", AgentID: "agent-us", DistributorEmail: "us@dist.example"},
	})

	agent, dist := table.Lookup("FR")
	if agent != "" || dist != "" {
		t.Errorf("expected empty results for unknown country, got %q, %q", agent, dist)
	}

	agent, dist = table.Lookup("")
	if agent != "" || dist != "" {
		t.Errorf("expected empty results for empty code, got %q, %q", agent, dist)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	table := NewTable([]Entry{
		{CountryCode: "DE", AgentID: "agent-de", DistributorEmail: "de@dist.example"},
	})

	for _, code := range []string{"DE", "de", "De", " dE "} {
		agent, dist := table.Lookup(code)
		if agent != "agent-de" {
			t.Errorf("Lookup(%q): expected agent-de, got %q", code, agent)
		}
		if dist != "de@dist.example" {
			t.Errorf("Lookup(%q): expected de@dist.example, got %q", code, dist)
		}
	}
}

func TestLookup_CountryKnownNoDistributor(t *testing.T) {
	table := NewTable([]Entry{
		{CountryCode: "NZ"},
	})

	agent, dist := table.Lookup("NZ")
	if agent != "" || dist != "" {
		t.Errorf("expected empty fields for bare entry, got %q, %q", agent, dist)
	}
	if table.Len() != 1 {
		t.Errorf("expected the bare entry to be kept, got len %d", table.Len())
	}
}

func TestLoad_FromCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.csv")
	content := "country_code,agent_id,distributor_email\n" +
		"US,A1,d@x.com\n" +
		"gb,,uk@dist.example\n" +
		"JP,agent-jp,\n" +
		",ignored,ignored@example.com\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if table.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", table.Len())
	}

	agent, dist := table.Lookup("US")
	if agent != "A1" || dist != "d@x.com" {
		t.Errorf("unexpected US entry: %q, %q", agent, dist)
	}

	// Lowercase code in the file is normalized to the canonical key.
	agent, dist = table.Lookup("GB")
	if agent != "" || dist != "uk@dist.example" {
		t.Errorf("unexpected GB entry: %q, %q", agent, dist)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.csv"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestLoad_MissingCountryColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.csv")
	if err := os.WriteFile(path, []byte("agent_id,distributor_email\nA1,d@x.com\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for a file without country_code")
	}
}

func TestResolveAssignment(t *testing.T) {
	defaults := Defaults{GeneralOfficeAgent: "office", HelpDeskAgent: "helpdesk"}

	agent, source := ResolveAssignment("A1", "d@x.com", defaults)
	if agent != "A1" || source != SourceCountry {
		t.Errorf("specific agent: got %q, %q", agent, source)
	}

	agent, source = ResolveAssignment("", "d@x.com", defaults)
	if agent != "helpdesk" || source != SourceHelpDesk {
		t.Errorf("distributor only: got %q, %q", agent, source)
	}

	agent, source = ResolveAssignment("", "", defaults)
	if agent != "office" || source != SourceDefault {
		t.Errorf("no routing: got %q, %q", agent, source)
	}
}
