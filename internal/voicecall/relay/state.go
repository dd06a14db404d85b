package relay

import "sync"

// State is the conversational state shared by both legs of one relay. Every
// read-modify-write happens under a single lock acquisition.
type State struct {
	mu sync.Mutex

	streamSID            string
	latestMediaTimestamp int64
	responseStart        *int64
	lastAssistantItem    string
	markQueue            []string
}

// Interruption is the snapshot taken when the caller starts speaking over the assistant.
type Interruption struct {
	StreamSID  string
	ItemID     string
	AudioEndMs int64
	// Truncate is set when audio for ItemID was still awaiting playback acknowledgement.
	Truncate bool
}

func NewState() *State {
	return &State{}
}

func (s *State) SetStreamSID(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streamSID = sid
}

func (s *State) StreamSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamSID
}

// ObserveMedia advances the media clock. Timestamps older than the current one are
// ignored so the clock never moves backward. It returns the clock after the update.
func (s *State) ObserveMedia(timestamp int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timestamp > s.latestMediaTimestamp {
		s.latestMediaTimestamp = timestamp
	}
	return s.latestMediaTimestamp
}

func (s *State) LatestMediaTimestamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestMediaTimestamp
}

// BeginChunk records that assistant audio for itemID reached the caller. The first chunk
// of a response anchors the response window at the current media clock.
func (s *State) BeginChunk(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.responseStart == nil {
		start := s.latestMediaTimestamp
		s.responseStart = &start
	}
	if itemID != "" {
		s.lastAssistantItem = itemID
	}
}

// ResponseStart returns the media clock value at which the current response began.
func (s *State) ResponseStart() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.responseStart == nil {
		return 0, false
	}
	return *s.responseStart, true
}

func (s *State) ActiveItem() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAssistantItem
}

func (s *State) PushMark(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markQueue = append(s.markQueue, name)
}

// AckMark pops the oldest outstanding mark. It reports false when none were outstanding.
func (s *State) AckMark() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.markQueue) == 0 {
		return false
	}
	s.markQueue = s.markQueue[1:]
	return true
}

func (s *State) PendingMarks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markQueue)
}

// Interrupt snapshots the truncation point and resets the response window, the active
// item and the mark queue. ok is false, and nothing changes, when no assistant item is
// active.
func (s *State) Interrupt() (in Interruption, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastAssistantItem == "" {
		return Interruption{}, false
	}

	in = Interruption{StreamSID: s.streamSID, ItemID: s.lastAssistantItem}
	if len(s.markQueue) > 0 && s.responseStart != nil {
		in.AudioEndMs = s.latestMediaTimestamp - *s.responseStart
		in.Truncate = true
	}

	s.markQueue = nil
	s.responseStart = nil
	s.lastAssistantItem = ""
	return in, true
}
