package submission

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/relaydesk/relaydesk/internal/crisp"
	"github.com/relaydesk/relaydesk/internal/geo"
	"github.com/relaydesk/relaydesk/internal/mailer"
	"github.com/relaydesk/relaydesk/internal/routing"
)

type mockGateway struct {
	sessionID string
	createErr error
	metaErr   error
	assignErr error
	sendErr   error

	meta       *crisp.Meta
	assignedTo string
	messages   []string
}

func (m *mockGateway) CreateConversation(ctx context.Context) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	return m.sessionID, nil
}

func (m *mockGateway) UpdateMeta(ctx context.Context, sessionID string, meta crisp.Meta) error {
	m.meta = &meta
	return m.metaErr
}

func (m *mockGateway) Assign(ctx context.Context, sessionID, agentID string) error {
	m.assignedTo = agentID
	return m.assignErr
}

func (m *mockGateway) SendMessage(ctx context.Context, sessionID, content string) error {
	m.messages = append(m.messages, content)
	return m.sendErr
}

type recordingMail struct {
	sent []mailer.Email
	err  error
}

func (r *recordingMail) Send(ctx context.Context, em mailer.Email) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, em)
	return nil
}

func testTable(t *testing.T) *routing.Table {
	t.Helper()
	return routing.NewTable([]routing.Entry{
		{CountryCode: "US", AgentID: "agent-us", DistributorEmail: "dist-us@example.com"},
		{CountryCode: "FR", AgentID: "agent-fr"},
	})
}

var testDefaults = routing.Defaults{
	GeneralOfficeAgent: "agent-general",
	HelpDeskAgent:      "agent-helpdesk",
}

func TestProcessRoutedCountry(t *testing.T) {
	gw := &mockGateway{sessionID: "session_abc"}
	mail := &recordingMail{}
	p := NewProcessor(gw, mail, NoopDirectory{}, testTable(t), testDefaults)

	sub := Submission{
		Name:    "Ada Lovelace",
		Email:   "ada@example.com",
		Message: "I need a quote.",
		Country: "United States",
		City:    "Boston",
	}
	loc := geo.Location{CountryCode: "US", City: "Boston", Region: "MA", Latitude: 42.36, Longitude: -71.06}

	if ok := p.Process(context.Background(), sub, loc, "203.0.113.7"); !ok {
		t.Fatal("expected Process to succeed")
	}

	if gw.meta == nil {
		t.Fatal("expected metadata to be written")
	}
	if gw.meta.Email != "ada@example.com" || gw.meta.Nickname != "Ada Lovelace" {
		t.Errorf("unexpected contact identity: %q / %q", gw.meta.Email, gw.meta.Nickname)
	}
	if gw.meta.IP != "203.0.113.7" {
		t.Errorf("expected client IP in metadata, got %q", gw.meta.IP)
	}
	if gw.meta.Subject != "Customer Inquiry - US" {
		t.Errorf("expected country code in subject, got %q", gw.meta.Subject)
	}
	if gw.meta.Device == nil || gw.meta.Device.Geolocation == nil || gw.meta.Device.Geolocation.Country != "US" {
		t.Error("expected geolocation country US in metadata")
	}
	if got := gw.meta.DataValue(crisp.DataDistributorEmail); got != "dist-us@example.com" {
		t.Errorf("expected distributor in metadata, got %q", got)
	}
	if got := gw.meta.DataValue(crisp.DataRoutingMethod); got != "email_forwarding" {
		t.Errorf("expected email_forwarding routing method, got %q", got)
	}
	if got := gw.meta.DataValue(crisp.DataAgentSource); got != routing.SourceCountry {
		t.Errorf("expected country agent source, got %q", got)
	}

	if gw.assignedTo != "agent-us" {
		t.Errorf("expected assignment to agent-us, got %q", gw.assignedTo)
	}

	if len(gw.messages) != 1 || gw.messages[0] != "I need a quote." {
		t.Errorf("unexpected posted messages: %v", gw.messages)
	}

	if len(mail.sent) != 1 {
		t.Fatalf("expected one distributor email, got %d", len(mail.sent))
	}
	em := mail.sent[0]
	if em.To != "dist-us@example.com" {
		t.Errorf("unexpected recipient %q", em.To)
	}
	if em.CC != "ada@example.com" {
		t.Errorf("expected customer CC, got %q", em.CC)
	}
	if em.SessionID != "session_abc" {
		t.Errorf("expected session threading, got %q", em.SessionID)
	}
	if !strings.Contains(em.Subject, "Ada Lovelace") || !strings.Contains(em.Subject, "US") {
		t.Errorf("unexpected subject %q", em.Subject)
	}
}

func TestProcessUnroutedCountryUsesGeneralOffice(t *testing.T) {
	gw := &mockGateway{sessionID: "session_def"}
	mail := &recordingMail{}
	p := NewProcessor(gw, mail, NoopDirectory{}, testTable(t), testDefaults)

	sub := Submission{Name: "Bob", Email: "bob@example.com", Message: "hello"}
	loc := geo.Location{CountryCode: "AQ"}

	if ok := p.Process(context.Background(), sub, loc, "198.51.100.9"); !ok {
		t.Fatal("expected Process to succeed")
	}
	if gw.assignedTo != "agent-general" {
		t.Errorf("expected general office agent, got %q", gw.assignedTo)
	}
	if got := gw.meta.DataValue(crisp.DataAgentSource); got != routing.SourceDefault {
		t.Errorf("expected default agent source, got %q", got)
	}
	if got := gw.meta.DataValue(crisp.DataDistributorEmail); got != "" {
		t.Errorf("expected empty distributor, got %q", got)
	}
	if got := gw.meta.DataValue(crisp.DataRoutingMethod); got != "direct" {
		t.Errorf("expected direct routing method, got %q", got)
	}
	if len(mail.sent) != 0 {
		t.Errorf("expected no distributor email, got %d", len(mail.sent))
	}
}

func TestProcessAgentWithoutDistributor(t *testing.T) {
	gw := &mockGateway{sessionID: "session_fr"}
	p := NewProcessor(gw, &recordingMail{}, NoopDirectory{}, testTable(t), testDefaults)

	ok := p.Process(context.Background(), Submission{Email: "c@example.com", Message: "bonjour"}, geo.Location{CountryCode: "FR"}, "")
	if !ok {
		t.Fatal("expected Process to succeed")
	}
	if gw.assignedTo != "agent-fr" {
		t.Errorf("expected agent-fr, got %q", gw.assignedTo)
	}
	if got := gw.meta.DataValue(crisp.DataRoutingMethod); got != "direct" {
		t.Errorf("expected direct routing without distributor, got %q", got)
	}
}

func TestProcessCreateFailureAborts(t *testing.T) {
	gw := &mockGateway{createErr: errors.New("api down")}
	mail := &recordingMail{}
	p := NewProcessor(gw, mail, NoopDirectory{}, testTable(t), testDefaults)

	if ok := p.Process(context.Background(), Submission{Email: "x@example.com"}, geo.Location{}, ""); ok {
		t.Fatal("expected Process to fail when conversation creation fails")
	}
	if gw.meta != nil || gw.assignedTo != "" || len(gw.messages) != 0 || len(mail.sent) != 0 {
		t.Error("expected no side effects after creation failure")
	}
}

func TestProcessSurvivesDownstreamFailures(t *testing.T) {
	gw := &mockGateway{
		sessionID: "session_ghi",
		metaErr:   errors.New("meta failed"),
		assignErr: errors.New("assign failed"),
		sendErr:   errors.New("send failed"),
	}
	mail := &recordingMail{err: errors.New("mailgun down")}
	p := NewProcessor(gw, mail, NoopDirectory{}, testTable(t), testDefaults)

	sub := Submission{Name: "Ada", Email: "ada@example.com", Message: "hi"}
	if ok := p.Process(context.Background(), sub, geo.Location{CountryCode: "US"}, ""); !ok {
		t.Error("expected Process to report success despite downstream failures")
	}
}

type mockDirectory struct {
	profiles []crisp.Profile

	updatedID     string
	updatedPerson *crisp.Person
}

func (m *mockDirectory) SearchProfiles(ctx context.Context, email string) ([]crisp.Profile, error) {
	return m.profiles, nil
}

func (m *mockDirectory) UpdateContact(ctx context.Context, peopleID, email string, person crisp.Person) error {
	m.updatedID = peopleID
	m.updatedPerson = &person
	return nil
}

func TestProcessSyncsExistingContact(t *testing.T) {
	gw := &mockGateway{sessionID: "session_jkl"}
	dir := &mockDirectory{profiles: []crisp.Profile{{PeopleID: "people_1", Email: "ada@example.com"}}}
	p := NewProcessor(gw, &recordingMail{}, dir, testTable(t), testDefaults)

	sub := Submission{Name: "Ada Lovelace", Email: "ada@example.com", Message: "hi"}
	loc := geo.Location{CountryCode: "US", City: "Boston"}

	if ok := p.Process(context.Background(), sub, loc, ""); !ok {
		t.Fatal("expected Process to succeed")
	}
	if dir.updatedID != "people_1" {
		t.Fatalf("expected existing profile updated, got %q", dir.updatedID)
	}
	if dir.updatedPerson.Nickname != "Ada Lovelace" {
		t.Errorf("unexpected nickname %q", dir.updatedPerson.Nickname)
	}
	if dir.updatedPerson.Geolocation == nil || dir.updatedPerson.Geolocation.Country != "US" {
		t.Errorf("unexpected geolocation %+v", dir.updatedPerson.Geolocation)
	}
}

func TestProcessSkipsUnknownContact(t *testing.T) {
	gw := &mockGateway{sessionID: "session_mno"}
	dir := &mockDirectory{}
	p := NewProcessor(gw, &recordingMail{}, dir, testTable(t), testDefaults)

	if ok := p.Process(context.Background(), Submission{Email: "new@example.com", Message: "hi"}, geo.Location{}, ""); !ok {
		t.Fatal("expected Process to succeed")
	}
	if dir.updatedID != "" {
		t.Error("expected no profile update for unknown contact")
	}
	if gw.meta.Subject != "Customer Inquiry" {
		t.Errorf("expected plain subject without a country code, got %q", gw.meta.Subject)
	}
}

func TestMessageWithAttachments(t *testing.T) {
	urls := []string{
		"https://files.example.com/uploads/photo%20one.jpg",
		"https://files.example.com/uploads/spec.pdf",
	}
	got := messageWithAttachments("see attached", urls)

	if !strings.HasPrefix(got, "see attached") {
		t.Errorf("expected message first, got %q", got)
	}
	first := strings.Index(got, "Attachment: photo one.jpg\nhttps://files.example.com/uploads/photo%20one.jpg")
	second := strings.Index(got, "Attachment: spec.pdf\nhttps://files.example.com/uploads/spec.pdf")
	if first == -1 || second == -1 {
		t.Fatalf("missing attachment links in %q", got)
	}
	if first > second {
		t.Error("expected attachments in upload order")
	}
}

func TestMessageWithAttachmentsNoMessage(t *testing.T) {
	got := messageWithAttachments("", []string{"https://files.example.com/a.txt"})
	if got != "Attachment: a.txt\nhttps://files.example.com/a.txt" {
		t.Errorf("unexpected content %q", got)
	}
	if messageWithAttachments("", nil) != "" {
		t.Error("expected empty content for empty submission")
	}
}
