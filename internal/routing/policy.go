package routing

// Agent-source labels stored in conversation metadata so later inspection can
// tell how an assignment was decided.
const (
	SourceCountry  = "country"
	SourceHelpDesk = "helpdesk"
	SourceDefault  = "default"
)

// Defaults holds the fallback agent identifiers used when the routing table
// has no specific agent for a country.
type Defaults struct {
	GeneralOfficeAgent string
	HelpDeskAgent      string
}

// ResolveAssignment decides which agent a new conversation is assigned to.
// The policy is a fixed three-way split:
//
//  1. the table names a specific agent for the country -> that agent;
//  2. no agent, but the country has a distributor -> the help-desk agent,
//     since a human will relay the inquiry to the distributor;
//  3. neither -> the general office agent.
//
// The returned source labels which branch was taken.
func ResolveAssignment(agentID, distributorEmail string, d Defaults) (assigned, source string) {
	switch {
	case agentID != "":
		return agentID, SourceCountry
	case distributorEmail != "":
		return d.HelpDeskAgent, SourceHelpDesk
	default:
		return d.GeneralOfficeAgent, SourceDefault
	}
}
