package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskroute/deskroute/internal/models"
)

func TestChannelSwitchCounting(t *testing.T) {
	s := New("cust-1")
	s = Update(s, Event{Channel: models.ChannelEmail, Text: "login broken"})
	s = Update(s, Event{Channel: models.ChannelWhatsApp, Text: "still broken"})
	s = Update(s, Event{Channel: models.ChannelWhatsApp, Text: "any update?"})

	assert.Equal(t, []models.Channel{models.ChannelEmail, models.ChannelWhatsApp}, s.ChannelsSeen)
	assert.Equal(t, 1, s.ChannelSwitches)
	assert.Equal(t, 3, s.MessageCount)
}

func TestChannelSwitchMonotonicity(t *testing.T) {
	sequence := []models.Channel{
		models.ChannelEmail, models.ChannelEmail, models.ChannelWhatsApp,
		models.ChannelWebForm, models.ChannelWebForm, models.ChannelEmail,
	}
	s := New("cust-2")
	prev := 0
	for _, ch := range sequence {
		before := s
		s = Update(s, Event{Channel: ch, Text: "hello"})
		require.GreaterOrEqual(t, s.ChannelSwitches, prev, "counter must never decrease")
		if lastChannel(before.ChannelsSeen) == ch {
			assert.Equal(t, prev, s.ChannelSwitches, "same-channel event must not increment")
		}
		prev = s.ChannelSwitches
	}
	assert.Equal(t, 3, s.ChannelSwitches)
}

func TestEscalationIsTerminal(t *testing.T) {
	s := New("cust-3")
	s = Update(s, Event{Channel: models.ChannelEmail, Text: "question about invoice"})
	assert.Equal(t, ResolutionSolved, s.Resolution)

	s = Update(s, Event{Channel: models.ChannelEmail, Text: "I want a refund", Escalate: true})
	assert.Equal(t, ResolutionEscalated, s.Resolution)

	s = Update(s, Event{Channel: models.ChannelWhatsApp, Text: "thanks, all good now"})
	assert.Equal(t, ResolutionEscalated, s.Resolution, "non-escalating events must not downgrade")
}

func TestUpdateDoesNotMutateInput(t *testing.T) {
	s := New("cust-4")
	s = Update(s, Event{Channel: models.ChannelEmail, Text: "billing question about my invoice"})

	snapshot := s.Summarize(3)
	_ = Update(s, Event{Channel: models.ChannelWhatsApp, Text: "hacked account!", Escalate: true})

	after := s.Summarize(3)
	assert.Equal(t, snapshot, after, "Update must leave the prior state untouched")
}

func TestSentimentScore(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"neutral", "where is the export button", 0.5},
		{"positive", "thanks, great support!", 0.9},
		{"negative", "this is ridiculous and frustrating", 0.1},
		{"clamped low", "unacceptable ridiculous frustrating angry ruined", 0.0},
		{"punctuation stripped", "thanks!", 0.7},
		{"empty", "", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SentimentScore(tt.text), 1e-9)
		})
	}
}

func TestExtractTopics(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"single topic", "problem with my invoice", []string{"billing"}},
		{"multiple topics", "login is down after the outage", []string{"access", "reliability"}},
		{"no match falls back", "how do I export a report?", []string{TopicGeneral}},
		{"empty text", "", []string{TopicGeneral}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTopics(tt.text))
		})
	}
}

func TestSummarize(t *testing.T) {
	s := New("cust-5")
	s = Update(s, Event{Channel: models.ChannelEmail, Text: "charged twice on my invoice"})
	s = Update(s, Event{Channel: models.ChannelWhatsApp, Text: "billing is still wrong and login is down"})
	s = Update(s, Event{Channel: models.ChannelWhatsApp, Text: "thanks for the help"})

	report := s.Summarize(2)
	assert.Equal(t, 3, report.MessageCount)
	assert.Equal(t, 1, report.ChannelSwitches)
	assert.Equal(t, []string{"billing", "access"}, report.TopTopics)
	assert.Equal(t, ResolutionSolved, report.Resolution)
	assert.InDelta(t, 0.5, report.AvgSentiment, 1e-9)
}

func TestReplayRebuildsState(t *testing.T) {
	events := []Event{
		{Channel: models.ChannelEmail, Text: "login broken"},
		{Channel: models.ChannelWhatsApp, Text: "still broken, this is frustrating"},
		{Channel: models.ChannelEmail, Text: "escalate me", Escalate: true},
	}

	incremental := New("cust-6")
	for _, ev := range events {
		incremental = Update(incremental, ev)
	}
	replayed := Replay("cust-6", events)

	assert.Equal(t, incremental.Summarize(5), replayed.Summarize(5))
	assert.Equal(t, incremental.ChannelSwitches, replayed.ChannelSwitches)
	assert.Equal(t, ResolutionEscalated, replayed.Resolution)
}
