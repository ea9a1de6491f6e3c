package masstrace

import "math"

// Traces are indexed by m/z bucket floor(mz*bucketsPerDa)
const bucketsPerDa = 10

// A cached trace matches a point only if it contains that exact
// measurement
const (
	retrieveMzTol        = 1e-8
	retrieveIntensityTol = 1e-3
)

// Cache holds all traces built during a processing session, indexed by
// m/z bucket
type Cache struct {
	traces  []*MassTrace
	buckets map[int][]int // bucket -> indices into traces
}

// NewCache returns an empty cache
func NewCache() *Cache {
	return &Cache{buckets: make(map[int][]int)}
}

// bucketRange returns the first and last bucket of an m/z range
func bucketRange(r Range) (int, int) {
	return int(math.Floor(r.Min * bucketsPerDa)), int(math.Ceil(r.Max * bucketsPerDa))
}

// Add registers a trace under every bucket its m/z range touches.
// Empty traces are ignored.
func (c *Cache) Add(t *MassTrace) {
	if t.IsEmpty() {
		return
	}
	i := len(c.traces)
	c.traces = append(c.traces, t)
	keyLow, keyHigh := bucketRange(t.MzRange())
	for key := keyLow; key <= keyHigh; key++ {
		c.buckets[key] = append(c.buckets[key], i)
	}
}

// Retrieve returns the cached trace that contains point p. If there is
// none, it returns Empty() and false.
func (c *Cache) Retrieve(p ScanPoint) (*MassTrace, bool) {
	keyDown := int(math.Floor(p.Mz * bucketsPerDa))
	if t, ok := c.lookup(keyDown, p); ok {
		return t, true
	}
	keyUp := int(math.Ceil(p.Mz * bucketsPerDa))
	if keyUp != keyDown {
		if t, ok := c.lookup(keyUp, p); ok {
			return t, true
		}
	}
	return emptyTrace, false
}

func (c *Cache) lookup(key int, p ScanPoint) (*MassTrace, bool) {
	for _, i := range c.buckets[key] {
		t := c.traces[i]
		q, ok := t.Find(p.ScanIndex)
		if ok && math.Abs(q.Mz-p.Mz) < retrieveMzTol &&
			math.Abs(q.Intensity-p.Intensity) < retrieveIntensityTol {
			return t, true
		}
	}
	return nil, false
}

// Len returns the number of cached traces
func (c *Cache) Len() int {
	return len(c.traces)
}

// Traces returns all cached traces in the order they were added
func (c *Cache) Traces() []*MassTrace {
	traces := make([]*MassTrace, len(c.traces))
	copy(traces, c.traces)
	return traces
}

// Merge adds the traces of other that are not in c yet, and returns the
// number of traces added. Traces are compared by their first point.
func (c *Cache) Merge(other *Cache) int {
	added := 0
	for _, t := range other.traces {
		if _, ok := c.Retrieve(t.Point(0)); !ok {
			c.Add(t)
			added++
		}
	}
	return added
}
