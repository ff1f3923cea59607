package feed

import "sync"

// Deduper is a thread-safe LRU set of record ids, used to drop re-delivered
// feed records. Bounded so a long-running feed cannot grow it without limit.
type Deduper struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*dedupeEntry
	head       *dedupeEntry // most recently used
	tail       *dedupeEntry // least recently used
}

type dedupeEntry struct {
	key  string
	prev *dedupeEntry
	next *dedupeEntry
}

func NewDeduper(maxEntries int) *Deduper {
	return &Deduper{
		maxEntries: maxEntries,
		entries:    make(map[string]*dedupeEntry),
	}
}

// Remember marks the id as seen. Returns false if it was already present.
func (c *Deduper) Remember(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.moveToFront(e)
		return false
	}

	e := &dedupeEntry{key: key}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	return true
}

func (c *Deduper) moveToFront(e *dedupeEntry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *Deduper) addToFront(e *dedupeEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Deduper) remove(e *dedupeEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Deduper) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
