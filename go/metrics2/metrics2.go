// Package metrics2 offers a thin facade over Prometheus counters so that
// callers don't need to deal with vectors, registration, or duplicate
// registration across packages.
package metrics2

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter tracks a metric which only ever increments.
type Counter struct {
	c prometheus.Counter
}

// Inc increments the counter by the given quantity.
func (c *Counter) Inc(i int64) {
	c.c.Add(float64(i))
}

var (
	mtx      sync.Mutex
	counters = map[string]*Counter{}
)

// GetCounter creates and returns a new Counter with the given name and tags,
// or the existing one if it was requested before. Tags become constant labels
// on the underlying Prometheus metric.
func GetCounter(name string, tags map[string]string) *Counter {
	mtx.Lock()
	defer mtx.Unlock()
	key := counterKey(name, tags)
	if c, ok := counters[key]; ok {
		return c
	}
	pc := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        name,
		ConstLabels: prometheus.Labels(tags),
	})
	if err := prometheus.Register(pc); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			pc = are.ExistingCollector.(prometheus.Counter)
		} else {
			panic(fmt.Sprintf("Failed to register counter %q: %s", name, err))
		}
	}
	c := &Counter{c: pc}
	counters[key] = c
	return c
}

func counterKey(name string, tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(tags)+1)
	parts = append(parts, name)
	for _, k := range keys {
		parts = append(parts, k+"="+tags[k])
	}
	return strings.Join(parts, ",")
}
