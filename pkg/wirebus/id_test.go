package wirebus_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/wirebus/pkg/wirebus"
)

func TestIDGeneratorLayout(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	gen := wirebus.NewIDGeneratorWithClock(func() time.Time { return fixed })

	id := gen.Next()
	assert.Equal(t, uint64(1700000000000), id>>20, "high bits carry the millisecond timestamp")
	assert.Equal(t, uint64(0), id&0xFFFFF, "first sequence value is zero")

	id2 := gen.Next()
	assert.Equal(t, uint64(1), id2&0xFFFFF, "sequence increments within the same millisecond")
	assert.Greater(t, id2, id)
}

func TestIDGeneratorMonotonicWithinMillisecond(t *testing.T) {
	fixed := time.UnixMilli(42)
	gen := wirebus.NewIDGeneratorWithClock(func() time.Time { return fixed })

	prev := gen.Next()
	for i := 0; i < 100; i++ {
		next := gen.Next()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestIDGeneratorConcurrentUnique(t *testing.T) {
	gen := wirebus.NewIDGenerator()

	const (
		goroutines = 8
		perG       = 500
	)

	var (
		mu  sync.Mutex
		ids = make(map[uint64]struct{}, goroutines*perG)
		wg  sync.WaitGroup
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint64, 0, perG)
			for i := 0; i < perG; i++ {
				local = append(local, gen.Next())
			}
			mu.Lock()
			for _, id := range local {
				ids[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, goroutines*perG, "all generated ids are unique")
}

func TestIDGeneratorTimestamp(t *testing.T) {
	fixed := time.UnixMilli(1234567)
	gen := wirebus.NewIDGeneratorWithClock(func() time.Time { return fixed })
	assert.Equal(t, uint64(1234567), gen.Timestamp())
}
