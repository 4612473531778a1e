// =============================================================================
// 📦 TeamFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:   DefaultServerConfig(),
		Database: DefaultDatabaseConfig(),
		Runs:     DefaultRunsConfig(),
		Events:   DefaultEventsConfig(),
		Backend:  DefaultBackendConfig(),
		Log:      DefaultLogConfig(),
		Metrics:  DefaultMetricsConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimit:       50,
		RateBurst:       100,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		DSN: "teamflow.db",
	}
}

// DefaultRunsConfig 返回默认运行管理配置
func DefaultRunsConfig() RunsConfig {
	return RunsConfig{
		MaxConcurrent: 8,
		RunTimeout:    10 * time.Minute,
	}
}

// DefaultEventsConfig 返回默认事件流配置
func DefaultEventsConfig() EventsConfig {
	return EventsConfig{
		BufferSize:        256,
		HeartbeatInterval: 15 * time.Second,
	}
}

// DefaultBackendConfig 返回默认后端配置
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Type:         "scripted",
		DefaultModel: "gpt-4o-mini",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "teamflow",
		Enabled:   true,
	}
}
