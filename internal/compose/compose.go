// Package compose renders reply text for a delivery channel. Rendering is
// pure formatting: it never fails for well-formed input of any length, and
// over-long chat messages degrade gracefully into boundary-aware segments.
package compose

import (
	"fmt"
	"strings"

	"github.com/deskroute/deskroute/internal/models"
)

// ChatSegmentLimit is the character ceiling for the first rendered chat
// segment.
const ChatSegmentLimit = 300

// WhatsAppMessageLimit is the per-message ceiling for outbound WhatsApp
// delivery when a reply is split across provider messages.
const WhatsAppMessageLimit = 1600

const (
	emailGreeting  = "Dear Customer,"
	emailSignature = "Best regards,\nThe Support Team"
)

// Compose renders message for the given channel, embedding referenceID so
// the customer can cite the ticket later.
func Compose(message string, channel models.Channel, referenceID string) string {
	switch channel {
	case models.ChannelEmail:
		return composeEmail(message, referenceID)
	case models.ChannelWhatsApp:
		return composeChat(message)
	default:
		return composeWeb(message, referenceID)
	}
}

// composeEmail wraps the body with the fixed greeting and signature block.
func composeEmail(message, referenceID string) string {
	var b strings.Builder
	b.WriteString(emailGreeting)
	b.WriteString("\n\n")
	b.WriteString(message)
	b.WriteString("\n\n")
	b.WriteString(emailSignature)
	if referenceID != "" {
		fmt.Fprintf(&b, "\n\nReference: %s", referenceID)
	}
	return b.String()
}

// composeChat joins boundary-aware segments so the first rendered segment
// never exceeds the chat ceiling.
func composeChat(message string) string {
	return strings.Join(SplitSegments(message, ChatSegmentLimit), "\n\n")
}

// composeWeb passes the body through with a short support-portal suffix.
func composeWeb(message, referenceID string) string {
	if referenceID == "" {
		return message + "\n\nYou can follow up any time via the support portal."
	}
	return fmt.Sprintf("%s\n\nYou can track this request in the support portal. Reference: %s", message, referenceID)
}

// SplitSegments splits text into segments of at most limit characters,
// preferring a break at the last sentence terminator inside the window,
// then the last whitespace, then a hard cut at the limit.
func SplitSegments(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var segments []string
	rest := text
	for len(rest) > limit {
		window := rest[:limit]

		cut := lastSentenceBreak(window)
		if cut == -1 {
			cut = strings.LastIndexByte(window, ' ')
		}
		if cut == -1 {
			cut = limit - 1 // hard cut
		}

		segments = append(segments, strings.TrimSpace(rest[:cut+1]))
		rest = strings.TrimSpace(rest[cut+1:])
	}
	if rest != "" {
		segments = append(segments, rest)
	}
	return segments
}

// lastSentenceBreak returns the index of the final sentence terminator
// that is followed by a space within window, or -1.
func lastSentenceBreak(window string) int {
	best := -1
	for _, term := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(window, term); i > best {
			best = i
		}
	}
	return best
}
