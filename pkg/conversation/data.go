// Package conversation holds the running transcript of a single conversation.
package conversation

import "github.com/papercomputeco/citebot/pkg/llm"

// Turn is one role-tagged unit of a transcript. Turns are never mutated once appended.
type Turn struct {
	Role    llm.Role `json:"role"`
	Content string   `json:"content"`
}

// Data is the ordered transcript of a conversation. Insertion order is chronological order.
type Data struct {
	Turns []Turn `json:"turns"`
}

// New creates a transcript seeded with a single system turn carrying the instructions.
// Empty instructions are valid and still produce the system turn.
func New(instructions string) *Data {
	return &Data{
		Turns: []Turn{{Role: llm.RoleSystem, Content: instructions}},
	}
}

// AddTurn appends a turn to the end of the transcript. There is no limit and no deduplication.
func (d *Data) AddTurn(role llm.Role, content string) {
	d.Turns = append(d.Turns, Turn{Role: role, Content: content})
}

// ToMessages projects the transcript 1:1 into completion request messages.
func (d *Data) ToMessages() []llm.Message {
	messages := make([]llm.Message, len(d.Turns))
	for i, t := range d.Turns {
		messages[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	return messages
}

// Len returns the number of turns.
func (d *Data) Len() int {
	return len(d.Turns)
}

// Clone returns a copy that shares no backing storage with d. A nil
// transcript clones to nil.
func (d *Data) Clone() *Data {
	if d == nil {
		return nil
	}
	turns := make([]Turn, len(d.Turns))
	copy(turns, d.Turns)
	return &Data{Turns: turns}
}
