package compose

import (
	"strings"
	"testing"

	"github.com/deskroute/deskroute/internal/models"
)

func TestComposeEmail(t *testing.T) {
	out := Compose("Your password has been reset.", models.ChannelEmail, "TK-001")

	if !strings.Contains(out, "Dear Customer") {
		t.Fatalf("email missing greeting: %q", out)
	}
	if !strings.Contains(out, "Best regards") {
		t.Fatalf("email missing signature: %q", out)
	}
	if !strings.Contains(out, "TK-001") {
		t.Fatalf("email missing reference id: %q", out)
	}
}

func TestComposeWhatsAppTruncation(t *testing.T) {
	long := strings.Repeat("x", 500)
	out := Compose(long, models.ChannelWhatsApp, "TK-002")

	first := strings.SplitN(out, "\n\n", 2)[0]
	if len(first) > ChatSegmentLimit {
		t.Fatalf("first segment is %d chars, limit %d", len(first), ChatSegmentLimit)
	}
}

func TestComposeWhatsAppShortPassThrough(t *testing.T) {
	msg := "All set! Let us know if anything else comes up."
	if out := Compose(msg, models.ChannelWhatsApp, ""); out != msg {
		t.Fatalf("short chat message must pass through, got %q", out)
	}
}

func TestComposeWebForm(t *testing.T) {
	out := Compose("Issue resolved.", models.ChannelWebForm, "TK-003")

	if !strings.Contains(out, "support portal") {
		t.Fatalf("web rendering missing portal suffix: %q", out)
	}
	if !strings.Contains(out, "TK-003") {
		t.Fatalf("web rendering missing reference id: %q", out)
	}
}

func TestSplitSegmentsPrefersSentenceBoundary(t *testing.T) {
	text := strings.Repeat("a", 200) + ". " + strings.Repeat("b", 200)
	segments := SplitSegments(text, 300)

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d: %v", len(segments), segments)
	}
	if !strings.HasSuffix(segments[0], ".") {
		t.Fatalf("first segment should end at sentence boundary: %q", segments[0])
	}
	if segments[1] != strings.Repeat("b", 200) {
		t.Fatalf("unexpected second segment: %q", segments[1])
	}
}

func TestSplitSegmentsWhitespaceFallback(t *testing.T) {
	text := strings.Repeat("word ", 100) // 500 chars, no sentence terminator
	for _, seg := range SplitSegments(text, 300) {
		if len(seg) > 300 {
			t.Fatalf("segment exceeds limit: %d chars", len(seg))
		}
	}
}

func TestSplitSegmentsHardCut(t *testing.T) {
	text := strings.Repeat("z", 1000) // no boundary anywhere
	segments := SplitSegments(text, 300)

	total := 0
	for _, seg := range segments {
		if len(seg) > 300 {
			t.Fatalf("segment exceeds limit: %d chars", len(seg))
		}
		total += len(seg)
	}
	if total != 1000 {
		t.Fatalf("hard cut lost content: %d of 1000 chars", total)
	}
}

func TestSplitSegmentsNeverExceedsAnyCeiling(t *testing.T) {
	inputs := []string{
		"",
		"short",
		strings.Repeat("sentence one. ", 50),
		strings.Repeat("nospacetext", 100),
		strings.Repeat("mixed content with spaces. and breaks! plus questions? ", 20),
	}
	for _, limit := range []int{1, 10, 300, 1600} {
		for _, text := range inputs {
			for i, seg := range SplitSegments(text, limit) {
				if i == 0 && len(seg) > limit {
					t.Fatalf("limit %d: first segment %d chars", limit, len(seg))
				}
			}
		}
	}
}
