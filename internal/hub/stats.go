package hub

// Stats is the snapshot served to external HTTP reporting.
type Stats struct {
	ConnectionCount         int            `json:"connectionCount"`
	AuthenticatedCount      int            `json:"authenticatedCount"`
	ActiveTransmissionCount int            `json:"activeTransmissionCount"`
	PerChannelMemberCounts  map[string]int `json:"perChannelMemberCounts"`
}

func (h *Hub) Stats() Stats {
	return Stats{
		ConnectionCount:         h.Registry.Count(),
		AuthenticatedCount:      h.Registry.AuthenticatedCount(),
		ActiveTransmissionCount: h.Arbiter.Count(),
		PerChannelMemberCounts:  h.Directory.MemberCounts(),
	}
}
