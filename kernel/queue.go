package kernel

import "fmt"

const (
	// QueueHeapSize is the byte capacity of every queue.
	QueueHeapSize = 256
	// QueueFill is written over the buffer by QueueInit.
	QueueFill = 0xFF
)

// Queue is a bounded FIFO of fixed-size elements stored in a static byte
// buffer. Like Semaphore it remembers a single waiting task.
type Queue struct {
	data        [QueueHeapSize]byte
	elementSize uint16
	maxElements uint16
	head        uint16
	tail        uint16
	count       uint16
	waiting     *TCB
}

func (q *Queue) Len() int                  { return int(q.count) }
func (q *Queue) Cap() int                  { return int(q.maxElements) }
func (q *Queue) ElementSize() int          { return int(q.elementSize) }
func (q *Queue) Waiting() *TCB             { return q.waiting }
func (q *Queue) Indices() (head, tail int) { return int(q.head), int(q.tail) }

// QueueInit prepares q for elements of elementSize bytes.
func (k *Kernel) QueueInit(q *Queue, elementSize uint16) error {
	if elementSize == 0 || elementSize > QueueHeapSize {
		return fmt.Errorf("kernel: queue element size %d outside [1, %d]", elementSize, QueueHeapSize)
	}
	q.elementSize = elementSize
	q.maxElements = QueueHeapSize / elementSize
	q.head = 0
	q.tail = 0
	q.count = 0
	q.waiting = nil
	for i := range q.data {
		q.data[i] = QueueFill
	}
	return nil
}

func (q *Queue) slot(i uint16) []byte {
	off := i * q.elementSize
	return q.data[off : off+q.elementSize]
}

// QueueInsert copies one element into q, blocking while q is full. elem is
// truncated or zero-padded to the element size.
//
// From interrupt context it never blocks and reports false when q is full.
func (k *Kernel) QueueInsert(q *Queue, elem []byte) bool {
	if q.maxElements == 0 {
		return false
	}
	irq := k.InInterrupt()
	t := k.current

	k.EnterCritical()
	if q.count == 0 {
		k.wake(q.waiting, irq)
	}
	for q.count >= q.maxElements {
		if irq || t == nil || t.state != TaskRunning {
			k.ExitCritical()
			return false
		}
		q.waiting = t
		t.state = TaskBlocked
		k.ExitCritical()
		k.Yield()
		k.EnterCritical()
	}

	dst := q.slot(q.head)
	n := copy(dst, elem)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	q.head = (q.head + 1) % q.maxElements
	q.count++
	q.waiting = nil
	k.ExitCritical()
	return true
}

// QueueRemove copies the oldest element of q into out, blocking while q is
// empty. From interrupt context it never blocks and reports false when q is
// empty.
func (k *Kernel) QueueRemove(q *Queue, out []byte) bool {
	if q.maxElements == 0 {
		return false
	}
	irq := k.InInterrupt()
	t := k.current

	k.EnterCritical()
	if q.count == q.maxElements {
		k.wake(q.waiting, irq)
	}
	for q.count == 0 {
		if irq || t == nil || t.state != TaskRunning {
			k.ExitCritical()
			return false
		}
		q.waiting = t
		t.state = TaskBlocked
		k.ExitCritical()
		k.Yield()
		k.EnterCritical()
	}

	copy(out, q.slot(q.tail))
	q.tail = (q.tail + 1) % q.maxElements
	q.count--
	q.waiting = nil
	k.ExitCritical()
	return true
}

func (k *Kernel) wake(t *TCB, irq bool) {
	if t == nil || t.state != TaskBlocked {
		return
	}
	t.state = TaskReady
	if irq {
		k.yieldFromIRQ = true
	}
}
