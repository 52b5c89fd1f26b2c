// Package whatsapp implements the WhatsApp Cloud API surface: inbound
// webhook payload decoding and the outbound text send capability.
package whatsapp

// Event is the envelope Meta posts to the webhook endpoint.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the changes delivered for one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries one batch of field updates.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue holds the messages of one change.
type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Messages         []Message `json:"messages"`
}

// Message is one inbound message; only type "text" is handled.
type Message struct {
	From string   `json:"from"`
	ID   string   `json:"id"`
	Type string   `json:"type"`
	Text *Content `json:"text,omitempty"`
}

// Content is the text body of a message.
type Content struct {
	Body string `json:"body"`
}

// InboundText is one decoded text message ready for dispatch.
type InboundText struct {
	SenderID  string
	MessageID string
	Body      string
}

// TextMessages extracts the dispatchable text messages from an event.
// Non-text messages (media, reactions, status updates) are dropped here;
// the webhook still acknowledges them.
func (e *Event) TextMessages() []InboundText {
	var out []InboundText
	for _, entry := range e.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text == nil || msg.From == "" {
					continue
				}
				out = append(out, InboundText{
					SenderID:  msg.From,
					MessageID: msg.ID,
					Body:      msg.Text.Body,
				})
			}
		}
	}
	return out
}
