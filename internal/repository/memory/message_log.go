package memory

import "lounge-chat/internal/domain"

// MessageLog keeps the most recent messages in a fixed-size ring.
// Older entries are overwritten on append.
// It is not safe for concurrent use; service.ChatService holds the lock.
type MessageLog struct {
	entries []domain.Message
	start   int
	size    int
	total   uint64
}

// NewMessageLog creates a log retaining at most capacity messages
func NewMessageLog(capacity int) *MessageLog {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryLimit
	}
	return &MessageLog{
		entries: make([]domain.Message, capacity),
	}
}

// Append stores msg with the next sequence number and returns the stored entry
func (l *MessageLog) Append(msg domain.Message) domain.Message {
	l.total++
	msg.Seq = l.total

	capacity := len(l.entries)
	if l.size < capacity {
		l.entries[(l.start+l.size)%capacity] = msg
		l.size++
	} else {
		l.entries[l.start] = msg
		l.start = (l.start + 1) % capacity
	}
	return msg
}

// LastN returns up to n of the most recent messages, oldest first
func (l *MessageLog) LastN(n int) []domain.Message {
	if n > l.size {
		n = l.size
	}
	if n <= 0 {
		return []domain.Message{}
	}

	capacity := len(l.entries)
	first := l.size - n
	out := make([]domain.Message, n)
	for i := range out {
		out[i] = l.entries[(l.start+first+i)%capacity]
	}
	return out
}

// Last returns the most recent message, if any
func (l *MessageLog) Last() (domain.Message, bool) {
	if l.size == 0 {
		return domain.Message{}, false
	}
	return l.entries[(l.start+l.size-1)%len(l.entries)], true
}

// Len returns the number of retained messages
func (l *MessageLog) Len() int {
	return l.size
}

// Total returns the number of messages appended since creation
func (l *MessageLog) Total() uint64 {
	return l.total
}

// Capacity returns how many messages the log retains
func (l *MessageLog) Capacity() int {
	return len(l.entries)
}
