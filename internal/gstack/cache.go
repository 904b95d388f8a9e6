package gstack

// Cache is the per-thread free list and delayed-free list. It is owned by
// exactly one prompt.Thread; nothing here is synchronized, because nothing
// outside the owning thread ever touches it.
type Cache struct {
	free    *Gstack
	freeLen int
	cap     int // negative disables caching
	delayed *Gstack
}

// NewCache creates an empty cache with the given capacity. A negative cap
// disables caching entirely: push always falls through to the platform.
func NewCache(cap int) *Cache {
	return &Cache{cap: cap}
}

func (c *Cache) pop() *Gstack {
	if c == nil || c.free == nil {
		return nil
	}
	g := c.free
	c.free = g.next
	g.next = nil
	c.freeLen--
	return g
}

// push tries to add g to the free list, returning false if the cache is
// at (or was configured below) capacity.
func (c *Cache) push(g *Gstack) bool {
	if c == nil || c.cap < 0 || c.freeLen >= c.cap {
		return false
	}
	g.next = c.free
	c.free = g
	c.freeLen++
	return true
}

func (c *Cache) delay(g *Gstack) {
	g.next = c.delayed
	c.delayed = g
}

// drainDelayed retires the delayed-free list through the normal free
// path: each stacklet is cached if there is room, released otherwise.
func (c *Cache) drainDelayed() {
	for g := c.delayed; g != nil; {
		next := g.next
		g.next = nil
		if c.push(g) {
			g.shrinkForReuse()
		} else {
			release(g)
		}
		g = next
	}
	c.delayed = nil
}

// Drain releases the delayed-free list and the entire free list to the
// platform. Called on thread teardown and on an explicit cache flush.
func (c *Cache) Drain() {
	if c == nil {
		return
	}
	for g := c.delayed; g != nil; {
		next := g.next
		release(g)
		g = next
	}
	c.delayed = nil
	for g := c.free; g != nil; {
		next := g.next
		release(g)
		g = next
	}
	c.free = nil
	c.freeLen = 0
}

// Len reports how many stacklets currently sit in the free list.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.freeLen
}
