package badwords

// ChannelKind classifies where a message was sent.
type ChannelKind int

const (
	ChannelText ChannelKind = iota
	ChannelDM
	ChannelPublicThread
	ChannelPrivateThread
)

// ChannelInfo is what the policy needs to know about a channel. For threads,
// ParentID and CategoryID describe the parent channel.
type ChannelInfo struct {
	Kind       ChannelKind
	ID         string
	ParentID   string
	CategoryID string
	// EveryoneCanView is false when regular members cannot see the channel.
	EveryoneCanView bool
}

// ChannelPolicy decides where bad words go unmoderated.
type ChannelPolicy struct {
	ExemptChannels   map[string]struct{}
	ExemptCategories map[string]struct{}
	// TicketChannel's private threads are exempt.
	TicketChannel string
}

func NewChannelPolicy(exemptChannels, exemptCategories []string, ticketChannel string) ChannelPolicy {
	return ChannelPolicy{
		ExemptChannels:   toSet(exemptChannels),
		ExemptCategories: toSet(exemptCategories),
		TicketChannel:    ticketChannel,
	}
}

// BadWordsAllowed reports whether moderation is skipped in a channel: DMs,
// exempt channels and categories, ticket threads, and channels hidden from
// regular members.
func (p ChannelPolicy) BadWordsAllowed(channel ChannelInfo) bool {
	if channel.Kind == ChannelDM {
		return true
	}
	base := channel.ID
	if channel.Kind == ChannelPublicThread || channel.Kind == ChannelPrivateThread {
		base = channel.ParentID
	}
	if _, ok := p.ExemptChannels[base]; ok {
		return true
	}
	if _, ok := p.ExemptCategories[channel.CategoryID]; ok && channel.CategoryID != "" {
		return true
	}
	if channel.Kind == ChannelPrivateThread && p.TicketChannel != "" && base == p.TicketChannel {
		return true
	}
	return !channel.EveryoneCanView
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
