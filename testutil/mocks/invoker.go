// MockInvoker 的模型后端测试模拟实现。
//
// 支持固定响应、按工具委派与错误注入场景。
package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BaSui01/teamflow/hierarchy"
)

// MockInvokerCall 记录单次后端调用
type MockInvokerCall struct {
	Request  hierarchy.InvokeRequest
	Response string
	Error    error
}

// MockInvoker 是 hierarchy.Invoker 的模拟实现
type MockInvoker struct {
	mu sync.Mutex

	// 响应配置
	response string
	err      error

	// 行为控制
	delegate   bool // 有下属工具时依次调用每个工具一次
	failAfter  int  // 在第 N 次调用后失败（0 表示不失败）
	callCount  int
	invokeFunc func(ctx context.Context, req hierarchy.InvokeRequest) (string, error)

	// 调用记录
	calls []MockInvokerCall
}

// NewMockInvoker 创建新的 MockInvoker
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		response: "mock response",
		delegate: true,
	}
}

// --- Builder 方法 ---

// WithResponse 设置固定响应
func (m *MockInvoker) WithResponse(response string) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithError 注入错误
func (m *MockInvoker) WithError(err error) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithFailAfter 在第 n 次调用之后开始返回错误
func (m *MockInvoker) WithFailAfter(n int) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithDelegation 控制监督者行为：是否调用下属工具
func (m *MockInvoker) WithDelegation(delegate bool) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delegate = delegate
	return m
}

// WithInvokeFunc 完全自定义调用行为
func (m *MockInvoker) WithInvokeFunc(fn func(ctx context.Context, req hierarchy.InvokeRequest) (string, error)) *MockInvoker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invokeFunc = fn
	return m
}

// --- hierarchy.Invoker 实现 ---

// Invoke 记录调用并按配置返回。
func (m *MockInvoker) Invoke(ctx context.Context, req hierarchy.InvokeRequest) (string, error) {
	m.mu.Lock()
	m.callCount++
	count := m.callCount
	fn := m.invokeFunc
	err := m.err
	failAfter := m.failAfter
	response := m.response
	delegate := m.delegate
	m.mu.Unlock()

	record := func(resp string, callErr error) (string, error) {
		m.mu.Lock()
		m.calls = append(m.calls, MockInvokerCall{Request: req, Response: resp, Error: callErr})
		m.mu.Unlock()
		return resp, callErr
	}

	if fn != nil {
		resp, callErr := fn(ctx, req)
		return record(resp, callErr)
	}
	if err != nil {
		return record("", err)
	}
	if failAfter > 0 && count > failAfter {
		return record("", fmt.Errorf("injected failure on call %d", count))
	}

	if delegate && len(req.Tools) > 0 {
		parts := make([]string, 0, len(req.Tools))
		for _, tool := range req.Tools {
			result, callErr := tool.Call(ctx, req.Task)
			if callErr != nil {
				return record("", callErr)
			}
			parts = append(parts, result)
		}
		resp := response
		for _, p := range parts {
			resp += "\n" + p
		}
		return record(resp, nil)
	}

	return record(response, nil)
}

// --- 断言辅助 ---

// CallCount 返回总调用次数
func (m *MockInvoker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls 返回调用记录副本
func (m *MockInvoker) Calls() []MockInvokerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockInvokerCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// TasksSeen 返回后端实际收到的任务列表
func (m *MockInvoker) TasksSeen() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := make([]string, 0, len(m.calls))
	for _, call := range m.calls {
		tasks = append(tasks, call.Request.Task)
	}
	return tasks
}

// Reset 清空调用记录与计数
func (m *MockInvoker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callCount = 0
}
