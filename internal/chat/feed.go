package chat

import (
	"time"

	"restaurant_portal/internal/models"
)

// echoWindow bounds how far apart a pending message and a server echo
// without a temp id may be and still be treated as the same message.
const echoWindow = 10 * time.Second

// Feed is the ordered message list of one session. It is not safe for
// concurrent use; Client guards it.
type Feed struct {
	messages []models.ChatMessage
}

// Replace swaps the whole list for a server snapshot.
func (f *Feed) Replace(msgs []models.ChatMessage) {
	f.messages = append([]models.ChatMessage(nil), msgs...)
}

func (f *Feed) Append(m models.ChatMessage) {
	f.messages = append(f.messages, m)
}

// Receive merges a server-confirmed message. A pending local message with
// the same temp id is replaced in place; failing that, a pending message
// with the same content sent within echoWindow is replaced. A message whose
// id is already present is dropped. Anything else is appended. It reports
// whether the feed changed.
func (f *Feed) Receive(m models.ChatMessage) bool {
	m.Pending = false

	if m.TempID != "" {
		for i := range f.messages {
			if f.messages[i].Pending && f.messages[i].TempID == m.TempID {
				f.messages[i] = m
				return true
			}
		}
	}

	if m.ID != "" {
		for i := range f.messages {
			if f.messages[i].ID == m.ID {
				return false
			}
		}
	}

	if m.TempID == "" {
		for i := range f.messages {
			if isEcho(f.messages[i], m) {
				f.messages[i] = m
				return true
			}
		}
	}

	f.messages = append(f.messages, m)
	return true
}

// Remove drops a pending message by temp id.
func (f *Feed) Remove(tempID string) bool {
	for i := range f.messages {
		if f.messages[i].Pending && f.messages[i].TempID == tempID {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			return true
		}
	}
	return false
}

func (f *Feed) Messages() []models.ChatMessage {
	return append([]models.ChatMessage(nil), f.messages...)
}

func (f *Feed) Len() int {
	return len(f.messages)
}

func isEcho(pending, m models.ChatMessage) bool {
	if !pending.Pending || pending.Content != m.Content {
		return false
	}
	if pending.SenderRole != "" && m.SenderRole != "" && pending.SenderRole != m.SenderRole {
		return false
	}
	d := m.CreatedAt.Sub(pending.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d <= echoWindow
}
