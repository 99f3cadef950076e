package notify

import (
	"context"
	"sync"
)

type Message struct {
	Recipient string
	Text      string
}

// Recorder keeps every message in memory. Recipients listed in Fail get
// the mapped error instead.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	Fail map[string]error
}

func NewRecorder() *Recorder { return &Recorder{Fail: map[string]error{}} }

func (r *Recorder) Notify(ctx context.Context, recipientID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.Fail[recipientID]; ok {
		return err
	}
	r.msgs = append(r.msgs, Message{Recipient: recipientID, Text: text})
	return nil
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.msgs))
	copy(out, r.msgs)
	return out
}

// To returns the texts delivered to recipientID, oldest first.
func (r *Recorder) To(recipientID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		if m.Recipient == recipientID {
			out = append(out, m.Text)
		}
	}
	return out
}
