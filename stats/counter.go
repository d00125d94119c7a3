package stats

// counter counts keys and remembers the order they first appeared in.
type counter[K comparable] struct {
	order  []K
	counts map[K]int
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{counts: make(map[K]int)}
}

func (c *counter[K]) add(k K) {
	c.addN(k, 1)
}

func (c *counter[K]) addN(k K, n int) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k] += n
}

// max returns the key with the highest count; the earliest key wins ties.
func (c *counter[K]) max() (K, int, bool) {
	var best K
	bestN, found := 0, false
	for _, k := range c.order {
		if n := c.counts[k]; !found || n > bestN {
			best, bestN, found = k, n, true
		}
	}
	return best, bestN, found
}
