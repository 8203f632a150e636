// Package state maintains the per-customer rolling memory: channel
// history, sentiment trend, topic frequency, and resolution status. The
// update step is a pure function so state is always reconstructable by
// replaying a customer's message history.
package state

import (
	"math"
	"sort"
	"strings"

	"github.com/deskroute/deskroute/internal/models"
)

// Resolution is the per-customer outcome within a tracking window. It is
// monotonic toward escalated: once escalated, later non-escalating events
// never downgrade it.
type Resolution string

const (
	ResolutionPending   Resolution = "pending"
	ResolutionSolved    Resolution = "solved"
	ResolutionEscalated Resolution = "escalated"
)

// Lexical sentiment word sets. This is a coarse keyword heuristic, not
// sentiment analysis: it is deliberately explainable and testable by
// construction.
var (
	positiveWords = map[string]struct{}{
		"love": {}, "great": {}, "thanks": {}, "kind": {}, "helpful": {}, "good": {},
	}
	negativeWords = map[string]struct{}{
		"unacceptable": {}, "ridiculous": {}, "frustrating": {}, "angry": {},
		"lawsuit": {}, "sue": {}, "ruined": {}, "hacked": {}, "down": {},
	}
)

// topicKeywords maps each tracked topic to its trigger phrases. A message
// may hit several topics; zero hits fall back to the sentinel topic.
var topicKeywords = map[string][]string{
	"billing":         {"billing", "charged", "refund", "invoice", "payment", "vat"},
	"security":        {"security", "hacked", "unauthorized", "signature"},
	"access":          {"login", "locked", "password", "access"},
	"reliability":     {"outage", "down", "latency", "500", "freeze", "failing"},
	"feature_request": {"feature request", "please add", "need dark mode", "bulk close", "widgets"},
}

// TopicGeneral is assigned when no topic keywords match.
const TopicGeneral = "general"

// Event is the slice of an inbound event the tracker consumes.
type Event struct {
	Channel  models.Channel
	Text     string
	Escalate bool
}

// State is the rolling per-customer summary. It is derived data, cached
// but never the source of truth.
type State struct {
	CustomerID      string           `json:"customer_id"`
	MessageCount    int              `json:"message_count"`
	ChannelsSeen    []models.Channel `json:"channels_seen"`
	ChannelSwitches int              `json:"channel_switches"`
	SentimentScores []float64        `json:"sentiment_scores"`
	Topics          map[string]int   `json:"topics"`
	Resolution      Resolution       `json:"resolution"`
}

// New returns an empty state for a customer.
func New(customerID string) State {
	return State{
		CustomerID: customerID,
		Topics:     make(map[string]int),
		Resolution: ResolutionPending,
	}
}

// Update applies one event and returns the successor state. The receiver
// is not mutated; callers own ordering and deduplication (counters are
// not idempotent under redelivery).
func Update(s State, ev Event) State {
	next := clone(s)

	// Runs of same-channel events collapse to one history entry; the
	// switch counter only moves on an actual change.
	last := lastChannel(next.ChannelsSeen)
	if last != "" && last != ev.Channel {
		next.ChannelSwitches++
	}
	if last != ev.Channel {
		next.ChannelsSeen = append(next.ChannelsSeen, ev.Channel)
	}

	next.MessageCount++
	next.SentimentScores = append(next.SentimentScores, SentimentScore(ev.Text))
	for _, topic := range ExtractTopics(ev.Text) {
		next.Topics[topic]++
	}

	if ev.Escalate {
		next.Resolution = ResolutionEscalated
	} else if next.Resolution != ResolutionEscalated {
		next.Resolution = ResolutionSolved
	}

	return next
}

// Replay rebuilds state from an ordered event sequence.
func Replay(customerID string, events []Event) State {
	s := New(customerID)
	for _, ev := range events {
		s = Update(s, ev)
	}
	return s
}

// SentimentScore maps text to [0,1] by counting positive and negative
// word matches: clamp(0.5 + (pos-neg)*0.2, 0, 1).
func SentimentScore(text string) float64 {
	raw := 0
	for _, token := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(token, ".,!?")
		if _, ok := positiveWords[word]; ok {
			raw++
		}
		if _, ok := negativeWords[word]; ok {
			raw--
		}
	}
	return math.Max(0, math.Min(1, 0.5+float64(raw)*0.2))
}

// ExtractTopics returns every topic whose keyword set matches the text,
// or the sentinel general topic when none do.
func ExtractTopics(text string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for topic, keywords := range topicKeywords {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits = append(hits, topic)
				break
			}
		}
	}
	if len(hits) == 0 {
		return []string{TopicGeneral}
	}
	sort.Strings(hits)
	return hits
}

// Report is the read view consumed for continuity messaging and analytics.
type Report struct {
	CustomerID      string           `json:"customer_id"`
	MessageCount    int              `json:"message_count"`
	ChannelsSeen    []models.Channel `json:"channels_seen"`
	ChannelSwitches int              `json:"channel_switches"`
	AvgSentiment    float64          `json:"avg_sentiment"`
	TopTopics       []string         `json:"top_topics"`
	Resolution      Resolution       `json:"resolution"`
}

// Summarize builds the reporting view: average sentiment rounded to two
// decimals and the top-k topics by frequency (count descending, name
// ascending on ties so the view is stable).
func (s State) Summarize(topK int) Report {
	avg := 0.0
	if len(s.SentimentScores) > 0 {
		sum := 0.0
		for _, v := range s.SentimentScores {
			sum += v
		}
		avg = math.Round(sum/float64(len(s.SentimentScores))*100) / 100
	}

	type topicCount struct {
		topic string
		count int
	}
	counts := make([]topicCount, 0, len(s.Topics))
	for topic, count := range s.Topics {
		counts = append(counts, topicCount{topic, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].topic < counts[j].topic
	})
	if topK > 0 && len(counts) > topK {
		counts = counts[:topK]
	}
	topics := make([]string, len(counts))
	for i, tc := range counts {
		topics[i] = tc.topic
	}

	return Report{
		CustomerID:      s.CustomerID,
		MessageCount:    s.MessageCount,
		ChannelsSeen:    s.ChannelsSeen,
		ChannelSwitches: s.ChannelSwitches,
		AvgSentiment:    avg,
		TopTopics:       topics,
		Resolution:      s.Resolution,
	}
}

func clone(s State) State {
	next := s
	next.ChannelsSeen = append([]models.Channel(nil), s.ChannelsSeen...)
	next.SentimentScores = append([]float64(nil), s.SentimentScores...)
	next.Topics = make(map[string]int, len(s.Topics))
	for k, v := range s.Topics {
		next.Topics[k] = v
	}
	return next
}

func lastChannel(seen []models.Channel) models.Channel {
	if len(seen) == 0 {
		return ""
	}
	return seen[len(seen)-1]
}
