package cache

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNilValue 表示 factory 返回了空值；空值永远不会写入缓存。
var ErrNilValue = errors.New("cache factory returned a nil value")

// Factory 在缓存未命中时构造值。
type Factory[V any] func() (V, error)

// Options 控制 ItemCache 的键规范化、资源释放与日志。
type Options[K comparable, V any] struct {
	// Name 出现在日志字段 cache 中，便于区分多个缓存实例。
	Name string
	// KeyFunc 对所有入口的 key 做规范化，必须与生产该 key 的解析器保持一致。
	KeyFunc func(K) K
	// Release 在 Unload/UnloadAll 移除条目后调用，用于释放外部资源。
	Release func(K, V)
	Logger  logrus.FieldLogger
}

// ItemCache 是按 key 惰性填充的泛型缓存，同一 key 的 factory 至多并发执行一次。
type ItemCache[K comparable, V any] struct {
	name    string
	keyFunc func(K) K
	release func(K, V)
	logger  logrus.FieldLogger

	mu    sync.RWMutex
	items map[K]V

	tokenMu sync.Mutex
	tokens  map[K]*loadToken[V]
}

// loadToken 协调同一 key 的并发加载：首个调用者执行 factory，其余调用者等待并共享结果。
type loadToken[V any] struct {
	done    chan struct{}
	value   V
	err     error
	waiters int
}

// New 构建 ItemCache；未提供 Logger 时使用 logrus 标准 logger。
func New[K comparable, V any](opts Options[K, V]) *ItemCache[K, V] {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	name := opts.Name
	if name == "" {
		name = "items"
	}
	return &ItemCache[K, V]{
		name:    name,
		keyFunc: opts.KeyFunc,
		release: opts.Release,
		logger:  logger,
		items:   make(map[K]V),
		tokens:  make(map[K]*loadToken[V]),
	}
}

// GetOrAdd 返回已缓存的值；未命中时执行 factory 并写入缓存。
// 并发的同 key 调用共享同一次 factory 执行及其结果（包括错误），失败结果不会写入缓存。
func (c *ItemCache[K, V]) GetOrAdd(key K, factory Factory[V]) (V, error) {
	k := c.normalize(key)
	if v, ok := c.lookup(k); ok {
		c.logger.WithFields(c.fields(k, true)).Debug("cache hit")
		return v, nil
	}

	c.tokenMu.Lock()
	if token, inflight := c.tokens[k]; inflight {
		token.waiters++
		c.tokenMu.Unlock()
		<-token.done
		return token.value, token.err
	}
	// 令牌删除与条目写入之间不存在空窗：持有 tokenMu 时再次检查条目。
	if v, ok := c.lookup(k); ok {
		c.tokenMu.Unlock()
		return v, nil
	}
	token := &loadToken[V]{done: make(chan struct{})}
	c.tokens[k] = token
	c.tokenMu.Unlock()

	c.load(k, token, factory)
	return token.value, token.err
}

func (c *ItemCache[K, V]) load(k K, token *loadToken[V], factory Factory[V]) {
	defer func() {
		c.tokenMu.Lock()
		delete(c.tokens, k)
		shared := token.waiters
		c.tokenMu.Unlock()
		close(token.done)

		fields := c.fields(k, false)
		fields["shared"] = shared
		if token.err != nil {
			c.logger.WithFields(fields).WithError(token.err).Warn("cache load failed")
			return
		}
		c.logger.WithFields(fields).Debug("cache load stored")
	}()

	if factory == nil {
		token.err = fmt.Errorf("cache %s: factory is required", c.name)
		return
	}

	value, err := callFactory(factory)
	if err == nil && isNil(value) {
		err = ErrNilValue
	}
	if err != nil {
		token.err = err
		return
	}

	c.mu.Lock()
	c.items[k] = value
	c.mu.Unlock()
	token.value = value
}

// TryGet 仅查询缓存，不会触发加载。
func (c *ItemCache[K, V]) TryGet(key K) (V, bool) {
	return c.lookup(c.normalize(key))
}

// Contains 判断 key 是否已缓存。
func (c *ItemCache[K, V]) Contains(key K) bool {
	_, ok := c.lookup(c.normalize(key))
	return ok
}

// Unload 移除条目并触发 Release；key 不存在时为 no-op，返回值表示是否真正移除。
func (c *ItemCache[K, V]) Unload(key K) bool {
	k := c.normalize(key)

	c.mu.Lock()
	value, ok := c.items[k]
	if ok {
		delete(c.items, k)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	if c.release != nil {
		c.release(k, value)
	}
	c.logger.WithFields(c.fields(k, true)).Debug("cache entry unloaded")
	return true
}

// UnloadAll 清空缓存并逐个释放条目，通常在关闭时调用。
func (c *ItemCache[K, V]) UnloadAll() int {
	c.mu.Lock()
	items := c.items
	c.items = make(map[K]V)
	c.mu.Unlock()

	if c.release != nil {
		for k, v := range items {
			c.release(k, v)
		}
	}
	return len(items)
}

// Len 返回当前缓存条目数。
func (c *ItemCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Keys 返回规范化后的 key 列表，顺序不保证。
func (c *ItemCache[K, V]) Keys() []K {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]K, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	return keys
}

func (c *ItemCache[K, V]) lookup(k K) (V, bool) {
	c.mu.RLock()
	v, ok := c.items[k]
	c.mu.RUnlock()
	return v, ok
}

func (c *ItemCache[K, V]) normalize(key K) K {
	if c.keyFunc == nil {
		return key
	}
	return c.keyFunc(key)
}

func (c *ItemCache[K, V]) fields(k K, hit bool) logrus.Fields {
	return logrus.Fields{
		"action":    "cache",
		"cache":     c.name,
		"key":       fmt.Sprint(k),
		"cache_hit": hit,
	}
}

func callFactory[V any](factory Factory[V]) (value V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache factory panic: %v", r)
		}
	}()
	return factory()
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
