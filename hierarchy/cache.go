package hierarchy

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Fingerprint 返回任务文本的确定性短哈希，用于 Worker 级重复任务检测。
// 截断摘要允许碰撞容忍；相同输入必须产生相同指纹。
func Fingerprint(task string) string {
	sum := sha256.Sum256([]byte(task))
	return hex.EncodeToString(sum[:])[:8]
}

// ResultCache 按 (Worker 名, 任务指纹) 记忆一次运行内的 Worker 调用结果。
// 必须按运行隔离：跨并发运行共享会破坏 at-most-once 不变式，
// 因此它作为值由运行的 CallTracker 持有，组装期显式注入每个 WorkerNode，
// 绝不作为全局/静态状态存在。
type ResultCache struct {
	mu      sync.RWMutex
	results map[cacheKey]string
}

type cacheKey struct {
	worker      string
	fingerprint string
}

// NewResultCache 创建空的结果缓存。
func NewResultCache() *ResultCache {
	return &ResultCache{results: make(map[cacheKey]string)}
}

// Get 查询缓存结果。
func (c *ResultCache) Get(worker, fingerprint string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.results[cacheKey{worker, fingerprint}]
	return result, ok
}

// Put 写入缓存结果。
func (c *ResultCache) Put(worker, fingerprint, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[cacheKey{worker, fingerprint}] = result
}

// Len 返回缓存条目数。
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}
