package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{1, 1024},
		{1024, 1024},
		{1025, 2048},
		{4096, 4096},
		{300 * 200, 60416},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sizeClass(tt.n), "n=%d", tt.n)
	}
}

func TestGetFloat32_LengthAndZeroed(t *testing.T) {
	buf := GetFloat32(1500)
	require.Len(t, buf, 1500)
	assert.Equal(t, 2048, cap(buf))
	for i := range buf {
		buf[i] = 7
	}
	PutFloat32(buf)

	again := GetFloat32(1500)
	for i, v := range again {
		if v != 0 {
			t.Fatalf("element %d not cleared: %v", i, v)
		}
	}
	PutFloat32(again)
}

func TestGet_NonPositive(t *testing.T) {
	assert.Nil(t, GetFloat32(0))
	assert.Nil(t, GetInt32(-3))
}

func TestPut_IgnoresForeignSlices(t *testing.T) {
	assert.NotPanics(t, func() {
		PutFloat32(nil)
		PutFloat32(make([]float32, 10))
		PutInt32(make([]int32, 1000, 1001))
	})
}

func TestGetInt32(t *testing.T) {
	buf := GetInt32(50)
	require.Len(t, buf, 50)
	buf[0] = 9
	PutInt32(buf)
	assert.Equal(t, int32(0), GetInt32(50)[0])
}

func TestPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for range 100 {
				buf := GetFloat32(n)
				if len(buf) != n {
					t.Errorf("got len %d, want %d", len(buf), n)
				}
				PutFloat32(buf)
			}
		}(1000 + g*700)
	}
	wg.Wait()
}
