package views

import (
	"sort"

	"athletix/tracker/internal/domain"
)

// Conversation returns the messages exchanged between a and b, oldest first.
// Conversation(m, a, b) and Conversation(m, b, a) are the same sequence.
func Conversation(messages []domain.Message, a, b string) []domain.Message {
	var out []domain.Message
	for _, m := range messages {
		if m.Between(a, b) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// UnreadFrom counts messages from sender to receiver not yet read.
func UnreadFrom(messages []domain.Message, sender, receiver string) int {
	n := 0
	for _, m := range messages {
		if m.SenderID == sender && m.ReceiverID == receiver && !m.IsRead {
			n++
		}
	}
	return n
}
