package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("analyze the dataset")
	assert.Len(t, fp, 8)
	assert.Equal(t, fp, Fingerprint("analyze the dataset"))
	assert.NotEqual(t, fp, Fingerprint("analyze the dataset "))
}

func TestFingerprint_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		task := rapid.String().Draw(t, "task")
		fp := Fingerprint(task)
		assert.Len(t, fp, 8)
		assert.Equal(t, fp, Fingerprint(task), "fingerprint must be deterministic")
		for _, c := range fp {
			assert.Contains(t, "0123456789abcdef", string(c))
		}
	})
}

func TestResultCache(t *testing.T) {
	cache := NewResultCache()
	assert.Equal(t, 0, cache.Len())

	_, ok := cache.Get("w1", "abcd1234")
	assert.False(t, ok)

	cache.Put("w1", "abcd1234", "first result")
	got, ok := cache.Get("w1", "abcd1234")
	assert.True(t, ok)
	assert.Equal(t, "first result", got)
	assert.Equal(t, 1, cache.Len())

	// 同名不同指纹、同指纹不同 worker 都是独立条目
	cache.Put("w1", "ffff0000", "second")
	cache.Put("w2", "abcd1234", "third")
	assert.Equal(t, 3, cache.Len())

	_, ok = cache.Get("w2", "ffff0000")
	assert.False(t, ok)

	// 覆盖写
	cache.Put("w1", "abcd1234", "updated")
	got, _ = cache.Get("w1", "abcd1234")
	assert.Equal(t, "updated", got)
	assert.Equal(t, 3, cache.Len())
}
