package models

import "fmt"

// Channel identifies the medium an event arrived through or a reply
// leaves through.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelWebForm  Channel = "web_form"
)

// ParseChannel validates a raw channel string from a transport payload.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelEmail, ChannelWhatsApp, ChannelWebForm:
		return Channel(s), nil
	}
	return "", fmt.Errorf("unknown channel %q", s)
}

// String returns the wire form of the channel.
func (c Channel) String() string {
	return string(c)
}
