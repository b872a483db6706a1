package domain

import "time"

// Message is a direct message between two profiles.
type Message struct {
	ID         string    `json:"id"`
	ClientRef  string    `json:"clientRef,omitempty"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"isRead"`
}

// Between reports whether the message belongs to the conversation of a and b,
// in either direction.
func (m Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// Involves is true when id sent or received the message.
func (m Message) Involves(id string) bool {
	return m.SenderID == id || m.ReceiverID == id
}

func (m Message) Key() string { return m.ID }
func (m Message) Ref() string { return m.ClientRef }

func (m Message) WithKey(id string) Message {
	m.ID = id
	return m
}

func (m Message) WithRef(ref string) Message {
	m.ClientRef = ref
	return m
}

func (m Message) Clone() Message { return m }
