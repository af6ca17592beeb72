package chat

// HistoryRing is a bounded append-with-eviction buffer of rendered chat
// lines.  Once full, pushing a new line evicts the oldest.  It is not safe
// for concurrent use on its own; the Room's lock guards it.
type HistoryRing struct {
	buf   [][]byte
	start int
	size  int
}

// NewHistoryRing returns a ring holding at most capacity lines.
func NewHistoryRing(capacity int) *HistoryRing {
	if capacity < 1 {
		capacity = 1
	}
	return &HistoryRing{buf: make([][]byte, capacity)}
}

// Push appends a line, evicting the oldest when the ring is full.
func (h *HistoryRing) Push(line []byte) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = line
		h.size++
		return
	}
	h.buf[h.start] = line
	h.start = (h.start + 1) % len(h.buf)
}

// Lines returns the buffered lines in arrival order, oldest first.
func (h *HistoryRing) Lines() [][]byte {
	out := make([][]byte, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)])
	}
	return out
}

// Len returns the number of buffered lines.
func (h *HistoryRing) Len() int { return h.size }
