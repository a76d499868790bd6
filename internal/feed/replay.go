package feed

// replayBuffer is a fixed-size ring of recent envelopes for one user.
// The hub lock guards it.
type replayBuffer struct {
	buf  []replayEntry
	pos  int // next write position
	full bool
}

type replayEntry struct {
	seq  int64
	data []byte
}

func newReplayBuffer(capacity int) *replayBuffer {
	if capacity <= 0 {
		capacity = replayDepth
	}
	return &replayBuffer{buf: make([]replayEntry, capacity)}
}

// push appends an entry, overwriting the oldest when full.
func (rb *replayBuffer) push(seq int64, data []byte) {
	rb.buf[rb.pos] = replayEntry{seq: seq, data: data}
	rb.pos = (rb.pos + 1) % len(rb.buf)
	if rb.pos == 0 {
		rb.full = true
	}
}

// after returns, oldest first, the payloads with seq greater than seq.
func (rb *replayBuffer) after(seq int64) [][]byte {
	n := rb.pos
	start := 0
	if rb.full {
		n = len(rb.buf)
		start = rb.pos
	}
	var out [][]byte
	for i := 0; i < n; i++ {
		e := rb.buf[(start+i)%len(rb.buf)]
		if e.seq > seq {
			out = append(out, e.data)
		}
	}
	return out
}
