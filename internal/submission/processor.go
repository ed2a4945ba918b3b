// Package submission turns contact-form webhook payloads into messaging
// conversations and distributor notifications.
package submission

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/relaydesk/relaydesk/internal/crisp"
	"github.com/relaydesk/relaydesk/internal/geo"
	"github.com/relaydesk/relaydesk/internal/mailer"
	"github.com/relaydesk/relaydesk/internal/routing"
)

// ConversationGateway is the slice of the messaging platform the processor
// needs.
type ConversationGateway interface {
	CreateConversation(ctx context.Context) (string, error)
	UpdateMeta(ctx context.Context, sessionID string, meta crisp.Meta) error
	Assign(ctx context.Context, sessionID, agentID string) error
	SendMessage(ctx context.Context, sessionID, content string) error
}

// EmailSender delivers outbound email.
type EmailSender interface {
	Send(ctx context.Context, em mailer.Email) error
}

// ContactDirectory looks up and updates people profiles.
type ContactDirectory interface {
	SearchProfiles(ctx context.Context, email string) ([]crisp.Profile, error)
	UpdateContact(ctx context.Context, peopleID, email string, person crisp.Person) error
}

// NoopDirectory is a ContactDirectory that does nothing, for deployments
// without a people directory.
type NoopDirectory struct{}

func (NoopDirectory) SearchProfiles(context.Context, string) ([]crisp.Profile, error) {
	return nil, nil
}

func (NoopDirectory) UpdateContact(context.Context, string, string, crisp.Person) error {
	return nil
}

// Processor drives the form-to-conversation pipeline.
type Processor struct {
	conversations ConversationGateway
	mail          EmailSender
	contacts      ContactDirectory
	table         *routing.Table
	defaults      routing.Defaults
}

func NewProcessor(conversations ConversationGateway, mail EmailSender, contacts ContactDirectory, table *routing.Table, defaults routing.Defaults) *Processor {
	return &Processor{
		conversations: conversations,
		mail:          mail,
		contacts:      contacts,
		table:         table,
		defaults:      defaults,
	}
}

// Process creates a conversation for a form submission, enriches it with
// geolocation and routing metadata, assigns an operator, posts the customer's
// message, and notifies the matched distributor by email. Only conversation
// creation is fatal; every later step logs its failure and the pipeline
// carries on, so the return value reports whether a conversation exists.
func (p *Processor) Process(ctx context.Context, sub Submission, loc geo.Location, clientIP string) bool {
	sessionID, err := p.conversations.CreateConversation(ctx)
	if err != nil {
		slog.Error("conversation creation failed", "error", err, "email", sub.Email)
		return false
	}
	slog.Info("conversation created", "session_id", sessionID, "email", sub.Email)

	agentID, distributor := p.table.Lookup(loc.CountryCode)
	assigned, source := routing.ResolveAssignment(agentID, distributor, p.defaults)

	routingMethod := "direct"
	if distributor != "" {
		routingMethod = "email_forwarding"
	}

	subject := "Customer Inquiry"
	if loc.CountryCode != "" {
		subject = "Customer Inquiry - " + loc.CountryCode
	}

	meta := crisp.Meta{
		Email:    sub.Email,
		Nickname: sub.Name,
		Subject:  subject,
		IP:       clientIP,
		Segments: []string{"ContactForm", "Country: " + sub.Country},
		Device: &crisp.Device{
			Geolocation: &crisp.Geolocation{
				Country: loc.CountryCode,
				Region:  loc.Region,
				City:    loc.City,
				Coordinates: &crisp.Coordinates{
					Latitude:  loc.Latitude,
					Longitude: loc.Longitude,
				},
			},
		},
		Data: map[string]string{
			crisp.DataCustomerEmail:    sub.Email,
			crisp.DataCustomerName:     sub.Name,
			crisp.DataDistributorEmail: distributor,
			crisp.DataAgentID:          assigned,
			crisp.DataAgentSource:      source,
			crisp.DataRoutingMethod:    routingMethod,
			crisp.DataFormMessage:      sub.Message,
			crisp.DataFormCountry:      sub.Country,
			crisp.DataFormCity:         sub.City,
		},
	}
	if err := p.conversations.UpdateMeta(ctx, sessionID, meta); err != nil {
		slog.Error("metadata update failed", "error", err, "session_id", sessionID)
	}

	if err := p.conversations.Assign(ctx, sessionID, assigned); err != nil {
		slog.Error("operator assignment failed", "error", err, "session_id", sessionID, "agent_id", assigned)
	} else {
		slog.Info("operator assigned", "session_id", sessionID, "agent_id", assigned, "source", source)
	}

	content := messageWithAttachments(sub.Message, sub.FileURLs)
	if content != "" {
		if err := p.conversations.SendMessage(ctx, sessionID, content); err != nil {
			slog.Error("message post failed", "error", err, "session_id", sessionID)
		}
	}

	p.syncContact(ctx, sub, loc)

	if distributor != "" {
		p.notifyDistributor(ctx, sessionID, distributor, sub, loc)
	}

	return true
}

// syncContact refreshes an existing people profile with the submission's
// name and location. New profiles are not created here; the platform does
// that itself from the conversation metadata.
func (p *Processor) syncContact(ctx context.Context, sub Submission, loc geo.Location) {
	profiles, err := p.contacts.SearchProfiles(ctx, sub.Email)
	if err != nil {
		slog.Warn("profile search failed", "error", err, "email", sub.Email)
		return
	}
	if len(profiles) == 0 {
		return
	}

	person := crisp.Person{
		Nickname: sub.Name,
		Geolocation: &crisp.PersonGeolocation{
			City:    loc.City,
			Country: loc.CountryCode,
		},
	}
	if err := p.contacts.UpdateContact(ctx, profiles[0].PeopleID, sub.Email, person); err != nil {
		slog.Warn("profile update failed", "error", err, "people_id", profiles[0].PeopleID)
	}
}

// notifyDistributor emails the inquiry to the matched distributor with the
// customer CC'd, threading replies back into the conversation.
func (p *Processor) notifyDistributor(ctx context.Context, sessionID, distributor string, sub Submission, loc geo.Location) {
	inquiry := mailer.Inquiry{
		CustomerName:  sub.Name,
		CustomerEmail: sub.Email,
		Message:       sub.Message,
		Country:       sub.Country,
		City:          sub.City,
		CountryCode:   loc.CountryCode,
	}
	em := mailer.Email{
		To:        distributor,
		CC:        sub.Email,
		Subject:   fmt.Sprintf("New Customer Inquiry - %s (%s)", sub.Name, loc.CountryCode),
		Text:      mailer.NewInquiryTextBody(inquiry),
		HTML:      mailer.NewInquiryHTMLBody(inquiry),
		SessionID: sessionID,
		Tags:      []string{"form-integration", "distributor-forwarding"},
	}
	if err := p.mail.Send(ctx, em); err != nil {
		slog.Error("distributor notification failed", "error", err, "session_id", sessionID, "distributor", distributor)
		return
	}
	slog.Info("distributor notified", "session_id", sessionID, "distributor", distributor)
}

// messageWithAttachments appends a labeled link block for each uploaded file
// to the customer's message, preserving upload order.
func messageWithAttachments(message string, fileURLs []string) string {
	parts := make([]string, 0, len(fileURLs)+1)
	if message != "" {
		parts = append(parts, message)
	}
	for _, u := range fileURLs {
		if u == "" {
			continue
		}
		parts = append(parts, "Attachment: "+fileName(u)+"\n"+u)
	}
	return strings.Join(parts, "\n\n")
}

func fileName(rawURL string) string {
	name := path.Base(rawURL)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	return name
}
