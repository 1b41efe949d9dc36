package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{"small size gets minimum", 1, 1024},
		{"exactly 1024", 1024, 1024},
		{"just over 1024", 1025, 2048},
		{"exact multiple of 1024", 2048, 2048},
		{"odd number", 1500, 2048},
		{"large size", 10000, 10240},
		{"zero size", 0, 1024},
		{"negative size", -1, 1024},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestPool_GetLengthAndCapacity(t *testing.T) {
	var p Pool[int64]
	for _, n := range []int{0, 1, 1000, 1025, 5000} {
		buf := p.Get(n)
		assert.Len(t, buf, n)
		assert.GreaterOrEqual(t, cap(buf), sizeClass(n))
		p.Put(buf)
	}
	assert.Empty(t, p.Get(-5))
}

func TestPool_GetZeroedClearsReusedBuffers(t *testing.T) {
	var p Pool[int64]
	buf := p.Get(100)
	for i := range buf {
		buf[i] = int64(i) + 1
	}
	p.Put(buf)

	// Whether or not the pool hands back the same buffer, it must be zeroed.
	for _, v := range p.GetZeroed(100) {
		assert.Zero(t, v)
	}
}

func TestPool_PutIgnoresSmallAndNil(t *testing.T) {
	var p Pool[byte]
	assert.NotPanics(t, func() {
		p.Put(nil)
		p.Put(make([]byte, 10))
		p.Put(make([]byte, 1500)) // filed under 1024
	})
	assert.Len(t, p.Get(1024), 1024)
}

func TestPool_Concurrent(t *testing.T) {
	var p Pool[int64]
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				n := (g+1)*100 + i
				buf := p.GetZeroed(n)
				if len(buf) != n {
					t.Errorf("got len %d, want %d", len(buf), n)
					return
				}
				buf[n-1] = int64(n)
				p.Put(buf)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkPool_GetPut(b *testing.B) {
	var p Pool[int64]
	for b.Loop() {
		p.Put(p.Get(640 * 480))
	}
}
