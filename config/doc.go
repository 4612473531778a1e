// Package config 提供 TeamFlow 的配置管理功能。
//
// 配置从默认值出发，依次被 YAML 文件和环境变量覆盖。
// 环境变量按 "TEAMFLOW_<SECTION>_<FIELD>" 命名，例如
// TEAMFLOW_SERVER_HTTP_PORT、TEAMFLOW_LOG_LEVEL。
package config
