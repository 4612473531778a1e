package events

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry 按运行 ID 管理事件总线。同一运行 ID 重复注册时，
// 旧总线先被关闭（其消费者收到关闭帧），再被新总线替换。
type Registry struct {
	mu     sync.RWMutex
	buses  map[string]*Bus
	logger *zap.Logger
}

// NewRegistry 创建空的总线注册表。
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		buses:  make(map[string]*Bus),
		logger: logger.With(zap.String("component", "event_registry")),
	}
}

// Register 为运行创建并登记一条新总线。
func (r *Registry) Register(runID string) *Bus {
	bus := NewBus(runID, DefaultBufferSize, r.logger)

	r.mu.Lock()
	prev := r.buses[runID]
	r.buses[runID] = bus
	r.mu.Unlock()

	if prev != nil {
		prev.Close()
		r.logger.Warn("replaced existing event bus", zap.String("run_id", runID))
	}
	return bus
}

// Get 返回运行对应的总线。
func (r *Registry) Get(runID string) (*Bus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bus, ok := r.buses[runID]
	return bus, ok
}

// Remove 关闭并摘除运行的总线。总线不存在时为空操作。
func (r *Registry) Remove(runID string) {
	r.mu.Lock()
	bus := r.buses[runID]
	delete(r.buses, runID)
	r.mu.Unlock()

	if bus != nil {
		bus.Close()
	}
}

// RunIDs 返回当前已登记的运行 ID，按字典序。
func (r *Registry) RunIDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.buses))
	for id := range r.buses {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len 返回已登记总线数量。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buses)
}
