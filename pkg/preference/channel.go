package preference

import "fmt"

// Channel is a delivery medium.
type Channel string

const (
	ChannelInApp   Channel = "in_app"
	ChannelEmail   Channel = "email"
	ChannelPush    Channel = "push"
	ChannelWebhook Channel = "webhook"
)

// Channels lists every supported channel.
func Channels() []Channel {
	return []Channel{ChannelInApp, ChannelEmail, ChannelPush, ChannelWebhook}
}

// Valid reports whether c is one of the supported channels.
func (c Channel) Valid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelPush, ChannelWebhook:
		return true
	}
	return false
}

// ParseChannel converts a wire value into a Channel.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
	return c, nil
}

func (c Channel) String() string { return string(c) }
