package consistency

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 16

// newReportCache 按指纹缓存分析报告，容量满时淘汰最久未使用的项
func newReportCache(capacity int) *lru.Cache[string, *Report] {
	if capacity <= 0 {
		capacity = defaultCacheSize
	}
	// 只有容量非正时才返回错误
	c, _ := lru.New[string, *Report](capacity)
	return c
}
