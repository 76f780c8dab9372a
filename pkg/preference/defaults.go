package preference

// Event types known to the default table.
const (
	EventContributionSubmitted = "contribution.submitted"
	EventContributionApproved  = "contribution.approved"
	EventContributionRejected  = "contribution.rejected"
	EventCommentCreated        = "comment.created"
	EventCommentReply          = "comment.reply"
	EventAnnouncement          = "announcement.published"
	EventSystemNotification    = "system.notification"
	EventSystemMaintenance     = "system.maintenance"
	EventAccountSecurity       = "account.security"
)

type key struct {
	channel   Channel
	eventType string
}

// Default is one entry of the default table.
type Default struct {
	Channel   Channel
	EventType string
	Enabled   bool
}

// Defaults is an immutable (channel, event type) -> enabled table.
type Defaults struct {
	entries map[key]bool
	order   []Default
}

// NewDefaults builds a table from entries. Later duplicates override earlier ones.
func NewDefaults(entries ...Default) Defaults {
	d := Defaults{entries: make(map[key]bool, len(entries))}
	pos := make(map[key]int, len(entries))
	for _, e := range entries {
		k := key{e.Channel, e.EventType}
		if i, seen := pos[k]; seen {
			d.order[i].Enabled = e.Enabled
		} else {
			pos[k] = len(d.order)
			d.order = append(d.order, e)
		}
		d.entries[k] = e.Enabled
	}
	return d
}

// Enabled returns the default for the pair; unknown pairs are disabled.
func (d Defaults) Enabled(channel Channel, eventType string) bool {
	return d.entries[key{channel, eventType}]
}

// Has reports whether the pair has an entry in the table.
func (d Defaults) Has(channel Channel, eventType string) bool {
	_, ok := d.entries[key{channel, eventType}]
	return ok
}

// Entries returns a copy of the table in declaration order.
func (d Defaults) Entries() []Default {
	out := make([]Default, len(d.order))
	copy(out, d.order)
	return out
}

// DefaultTable returns the built-in defaults. In-app is on for every known
// event; email and push only for events a user is expected to act on.
// Webhook deliveries are not filtered per user and have no entries.
func DefaultTable() Defaults {
	return NewDefaults(
		Default{ChannelInApp, EventContributionSubmitted, true},
		Default{ChannelInApp, EventContributionApproved, true},
		Default{ChannelInApp, EventContributionRejected, true},
		Default{ChannelInApp, EventCommentCreated, true},
		Default{ChannelInApp, EventCommentReply, true},
		Default{ChannelInApp, EventAnnouncement, true},
		Default{ChannelInApp, EventSystemNotification, true},
		Default{ChannelInApp, EventSystemMaintenance, true},
		Default{ChannelInApp, EventAccountSecurity, true},

		Default{ChannelEmail, EventContributionSubmitted, false},
		Default{ChannelEmail, EventContributionApproved, true},
		Default{ChannelEmail, EventContributionRejected, true},
		Default{ChannelEmail, EventCommentCreated, false},
		Default{ChannelEmail, EventCommentReply, true},
		Default{ChannelEmail, EventAnnouncement, true},
		Default{ChannelEmail, EventSystemNotification, false},
		Default{ChannelEmail, EventSystemMaintenance, true},
		Default{ChannelEmail, EventAccountSecurity, true},

		Default{ChannelPush, EventContributionApproved, true},
		Default{ChannelPush, EventCommentReply, true},
		Default{ChannelPush, EventAccountSecurity, true},
		Default{ChannelPush, EventCommentCreated, false},
	)
}
