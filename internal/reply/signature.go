package reply

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// bodyPrefixLen bounds how much body text feeds the fallback signature so
// large messages hash quickly and trailing noise does not split duplicates.
const bodyPrefixLen = 1024

// DedupSignature derives a stable identity for an inbound email event.
// Provider identifiers are preferred in order of reliability: the RFC 5322
// Message-Id, then the provider's signed delivery triple, then a content
// hash of the stable envelope fields.
func (ev Event) DedupSignature() string {
	if id := strings.TrimSpace(ev.MessageID); id != "" {
		return "mid:" + id
	}
	if ev.Signature != "" && ev.Token != "" && ev.Timestamp != "" {
		return "sig:" + ev.Timestamp + ":" + ev.Token + ":" + ev.Signature
	}

	body := ev.TextBody
	if len(body) > bodyPrefixLen {
		body = body[:bodyPrefixLen]
	}
	sum := sha256.Sum256([]byte(ev.Sender + "|" + ev.SessionID + "|" + ev.Subject + "|" + body))
	return "sha:" + hex.EncodeToString(sum[:])
}
