package service

import (
	"sync"
	"time"

	"github.com/eliasthecreate/Inter-Ministry-Exchange--sub000/internal/model"
)

const activeListKey = "\x00active"

// DirectoryCache 部委目录缓存
type DirectoryCache struct {
	cache *sync.Map
	ttl   time.Duration
	clock Clock
}

// cacheEntry 缓存条目
type cacheEntry struct {
	ministry  *model.MinistryModel
	active    []*model.MinistryModel
	expiresAt time.Time
}

// NewDirectoryCache 创建目录缓存,ttl <= 0 时不缓存
func NewDirectoryCache(ttl time.Duration, clock Clock) *DirectoryCache {
	if clock == nil {
		clock = SystemClock{}
	}
	return &DirectoryCache{
		cache: &sync.Map{},
		ttl:   ttl,
		clock: clock,
	}
}

func (c *DirectoryCache) load(key string) (*cacheEntry, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	val, found := c.cache.Load(key)
	if !found {
		return nil, false
	}
	entry := val.(*cacheEntry)
	if c.clock.Now().After(entry.expiresAt) {
		// 已过期,删除
		c.cache.Delete(key)
		return nil, false
	}
	return entry, true
}

func (c *DirectoryCache) store(key string, entry *cacheEntry) {
	if c == nil || c.ttl <= 0 {
		return
	}
	entry.expiresAt = c.clock.Now().Add(c.ttl)
	c.cache.Store(key, entry)
}

// Get 获取缓存的部委,返回副本
func (c *DirectoryCache) Get(id string) (*model.MinistryModel, bool) {
	entry, ok := c.load(id)
	if !ok {
		return nil, false
	}
	m := *entry.ministry
	return &m, true
}

// Set 缓存部委
func (c *DirectoryCache) Set(m *model.MinistryModel) {
	cp := *m
	c.store(m.ID, &cacheEntry{ministry: &cp})
}

// GetActive 获取缓存的激活部委列表
func (c *DirectoryCache) GetActive() ([]*model.MinistryModel, bool) {
	entry, ok := c.load(activeListKey)
	if !ok {
		return nil, false
	}
	return copyMinistries(entry.active), true
}

// SetActive 缓存激活部委列表
func (c *DirectoryCache) SetActive(list []*model.MinistryModel) {
	c.store(activeListKey, &cacheEntry{active: copyMinistries(list)})
}

// Invalidate 清空缓存,部委发生任何变更后调用
func (c *DirectoryCache) Invalidate() {
	if c == nil {
		return
	}
	c.cache.Range(func(key, value interface{}) bool {
		c.cache.Delete(key)
		return true
	})
}

func copyMinistries(list []*model.MinistryModel) []*model.MinistryModel {
	out := make([]*model.MinistryModel, 0, len(list))
	for _, m := range list {
		cp := *m
		out = append(out, &cp)
	}
	return out
}
