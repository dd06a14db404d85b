package processor

import (
	"strings"

	"voice-relay/internal/clients/openai"
)

type turnItem struct {
	id          string
	assistant   bool
	text        string
	transcribed bool
}

type turn struct {
	user      string
	assistant string
}

// turnLog pairs caller utterances with the assistant reply that follows them in the
// conversation. Items are kept in conversation order and a turn is released only once
// every item in it has its transcript, so late transcriptions land on the right turn.
type turnLog struct {
	items []*turnItem
	byID  map[string]*turnItem
}

func newTurnLog() *turnLog {
	return &turnLog{byID: make(map[string]*turnItem)}
}

// add appends an item that has not been transcribed yet. Items already known are left
// where they are.
func (l *turnLog) add(id, role string, transcribed bool) {
	if id != "" {
		if _, ok := l.byID[id]; ok {
			return
		}
	}
	item := &turnItem{id: id, assistant: role == openai.RoleAssistant, transcribed: transcribed}
	l.items = append(l.items, item)
	if id != "" {
		l.byID[id] = item
	}
}

// transcribe sets the text of an item. Transcripts for items never announced are
// appended at the end of the conversation.
func (l *turnLog) transcribe(id, role, text string) {
	item, ok := l.byID[id]
	if !ok {
		l.add(id, role, true)
		item = l.items[len(l.items)-1]
	}
	item.text = strings.TrimSpace(text)
	item.transcribed = true
}

// ready removes and returns every complete turn at the head of the conversation.
func (l *turnLog) ready() []turn {
	var turns []turn
	for {
		end := l.nextTurnEnd()
		if end == len(l.items) {
			return turns
		}
		for _, item := range l.items[:end+1] {
			if !item.transcribed {
				return turns
			}
		}
		turns = append(turns, l.take(end+1))
	}
}

// drain removes and returns everything left, transcribed or not.
func (l *turnLog) drain() []turn {
	var turns []turn
	for len(l.items) > 0 {
		end := l.nextTurnEnd()
		if end == len(l.items) {
			end = len(l.items) - 1
		}
		turns = append(turns, l.take(end+1))
	}
	return turns
}

// nextTurnEnd returns the index of the first assistant item, or len(items) when there is
// none yet.
func (l *turnLog) nextTurnEnd() int {
	for i, item := range l.items {
		if item.assistant {
			return i
		}
	}
	return len(l.items)
}

func (l *turnLog) take(n int) turn {
	var t turn
	var user []string
	for _, item := range l.items[:n] {
		if item.id != "" {
			delete(l.byID, item.id)
		}
		if item.text == "" {
			continue
		}
		if item.assistant {
			t.assistant = item.text
		} else {
			user = append(user, item.text)
		}
	}
	t.user = strings.Join(user, " ")
	l.items = l.items[n:]
	return t
}
