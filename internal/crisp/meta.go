package crisp

import "encoding/json"

// Metadata data-object keys. The conversation metadata blob is the only
// persistent state this service has; these keys are what later reply routing
// reads back, so writers and readers must agree on them.
const (
	DataCustomerEmail    = "customer_email"
	DataCustomerName     = "customer_name"
	DataDistributorEmail = "distributor_email"
	DataAgentID          = "agent_id"
	DataAgentSource      = "agent_source"
	DataRoutingMethod    = "routing_method"
	DataFormMessage      = "form_message"
	DataFormCountry      = "form_country"
	DataFormCity         = "form_city"
)

// Meta is a conversation's metadata blob.
type Meta struct {
	Email    string            `json:"email,omitempty"`
	Nickname string            `json:"nickname,omitempty"`
	Subject  string            `json:"subject,omitempty"`
	IP       string            `json:"ip,omitempty"`
	Segments []string          `json:"segments,omitempty"`
	Device   *Device           `json:"device,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// DataValue returns the named key from the data object, or "" when absent.
func (m Meta) DataValue(key string) string {
	if m.Data == nil {
		return ""
	}
	return m.Data[key]
}

// Device carries the visitor's device information; only geolocation is used.
type Device struct {
	Geolocation *Geolocation `json:"geolocation,omitempty"`
}

// Geolocation mirrors the platform's nested geolocation structure.
type Geolocation struct {
	Country     string       `json:"country"`
	Region      string       `json:"region"`
	City        string       `json:"city"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Message is a single entry in a conversation's history. Content is a string
// for text messages and an object for file and rich messages, so it is kept
// raw and decoded on demand.
type Message struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Origin  string          `json:"origin"`
	Content json.RawMessage `json:"content"`
}

// Text returns the content of a text message, or "" for non-text content.
func (m Message) Text() string {
	if m.Type != "text" {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err != nil {
		return ""
	}
	return s
}

// Person is the profile payload for contact updates.
type Person struct {
	Nickname    string             `json:"nickname,omitempty"`
	Geolocation *PersonGeolocation `json:"geolocation,omitempty"`
}

type PersonGeolocation struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// Profile is a people-profile search result.
type Profile struct {
	PeopleID string `json:"people_id"`
	Email    string `json:"email"`
}
