// Copyright 2026 TeamFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 TeamFlow 测试的共享模拟实现。

# 子包

  - testutil/mocks: MockInvoker（模型后端模拟），支持固定响应、
    按工具委派与错误注入，并记录每次调用供断言使用

# 使用示例

	backend := mocks.NewMockInvoker().WithDelegation()
	root, err := hierarchy.NewAssembler(spec, backend, logger).Build()
	require.NoError(t, err)
*/
package testutil
