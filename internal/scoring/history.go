package scoring

// historyCapacity bounds how many snapshots the undo ring retains.
const historyCapacity = 20

// history is a fixed-capacity ring buffer of state snapshots. Push and pop are
// O(1) and the arena never grows; once full, the oldest snapshot is dropped.
type history struct {
	buf  [historyCapacity]State
	head int
	size int
}

func (h *history) push(s State) {
	h.buf[h.head] = s
	h.head = (h.head + 1) % historyCapacity
	if h.size < historyCapacity {
		h.size++
	}
}

func (h *history) pop() (State, bool) {
	if h.size == 0 {
		return State{}, false
	}
	h.head = (h.head - 1 + historyCapacity) % historyCapacity
	h.size--
	return h.buf[h.head], true
}

func (h *history) clear() {
	h.head = 0
	h.size = 0
}

func (h *history) len() int {
	return h.size
}
