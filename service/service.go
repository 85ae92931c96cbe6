// Package service 实现用户 Feed 的读取与刷新：
// 读缓存，过期则用 Pipeline 重新计算并原地覆盖该用户唯一的缓存行。
package service
