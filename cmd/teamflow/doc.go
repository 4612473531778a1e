// teamflow 命令是层级协同执行服务的入口。
//
// serve 子命令装配存储、事件注册表、运行管理器与 HTTP API 并常驻运行；
// health 子命令对运行中的实例做一次健康探测。
package main
