package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	{ // Test bucket sizes
		sizes := func(K, Np int) (histo map[int]int) {
			pm := NewPartitionMap(Np, K)
			histo = make(map[int]int)
			for bn := 0; bn < pm.ParallelDegree; bn++ {
				kMin, kMax := pm.GetBucketRange(bn)
				histo[kMax-kMin]++
			}
			return
		}
		assert.Equal(t, map[int]int{0: 30, 1: 2}, sizes(2, 32))
		assert.Equal(t, map[int]int{1: 32}, sizes(32, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, sizes(287, 32))
	}
	{ // Test buckets tile the range in order
		for n := 0; n < 200; n++ {
			pm := NewPartitionMap(7, n)
			next := 0
			for bn := 0; bn < 7; bn++ {
				kMin, kMax := pm.GetBucketRange(bn)
				assert.Equal(t, next, kMin)
				assert.True(t, kMax-kMin == n/7 || kMax-kMin == n/7+1)
				next = kMax
			}
			assert.Equal(t, n, next)
		}
		assert.Equal(t, 1, NewPartitionMap(0, 5).ParallelDegree)
		kMin, kMax := NewPartitionMap(0, 5).GetBucketRange(0)
		assert.Equal(t, [2]int{0, 5}, [2]int{kMin, kMax})
	}
}
