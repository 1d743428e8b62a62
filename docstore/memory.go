package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryCollection 是 Collection 的进程内实现，供单元测试与本地开发使用。
// 文档经过 BSON 编解码后存储，语义上与 MongoDB 集合保持一致（等值过滤、
// $gte/$lte 范围过滤、多键排序、skip/limit）。
type MemoryCollection struct {
	mu   sync.RWMutex
	docs []bson.M
}

// NewMemoryCollection 创建空的内存集合。
func NewMemoryCollection() *MemoryCollection {
	return &MemoryCollection{}
}

// InsertOne 插入文档副本，无 _id 时自动生成。
func (c *MemoryCollection) InsertOne(_ context.Context, doc any) (string, error) {
	m, err := toBSONMap(doc)
	if err != nil {
		return "", err
	}

	id, ok := m["_id"].(primitive.ObjectID)
	if !ok {
		id = primitive.NewObjectID()
		m["_id"] = id
	}

	c.mu.Lock()
	c.docs = append(c.docs, m)
	c.mu.Unlock()

	return id.Hex(), nil
}

// FindOne 返回命中的首个文档。
func (c *MemoryCollection) FindOne(_ context.Context, filter bson.M, out any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, doc := range c.docs {
		if matchFilter(doc, filter) {
			return decodeBSONMap(doc, out)
		}
	}
	return ErrNoDocuments
}

// Find 返回命中的全部文档，应用排序与分页后解码到 out。
func (c *MemoryCollection) Find(_ context.Context, filter bson.M, opts FindOptions, out any) error {
	c.mu.RLock()
	matched := make([]bson.M, 0, len(c.docs))
	for _, doc := range c.docs {
		if matchFilter(doc, filter) {
			matched = append(matched, doc)
		}
	}
	c.mu.RUnlock()

	if len(opts.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, field := range opts.Sort {
				cmp := compareValues(matched[i][field.Key], matched[j][field.Key])
				if cmp == 0 {
					continue
				}
				if toInt(field.Value) < 0 {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
		matched = matched[:opts.Limit]
	}

	outVal := reflect.ValueOf(out)
	if outVal.Kind() != reflect.Ptr || outVal.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("docstore: Find out must be a pointer to slice, got %T", out)
	}

	sliceVal := outVal.Elem()
	elemType := sliceVal.Type().Elem()
	result := reflect.MakeSlice(sliceVal.Type(), 0, len(matched))
	for _, doc := range matched {
		elem := reflect.New(elemType)
		if err := decodeBSONMap(doc, elem.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, elem.Elem())
	}
	sliceVal.Set(result)

	return nil
}

// UpdateOne 对命中的首个文档应用 $set 更新。
func (c *MemoryCollection) UpdateOne(_ context.Context, filter bson.M, update bson.M) (int64, int64, error) {
	setFields, ok := update["$set"].(bson.M)
	if !ok {
		return 0, 0, fmt.Errorf("docstore: memory collection only supports $set updates")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range c.docs {
		if !matchFilter(doc, filter) {
			continue
		}
		normalized, err := toBSONMap(setFields)
		if err != nil {
			return 0, 0, err
		}
		modified := int64(0)
		for k, v := range normalized {
			if compareValues(doc[k], v) != 0 {
				modified = 1
			}
			doc[k] = v
		}
		return 1, modified, nil
	}
	return 0, 0, nil
}

// DeleteOne 删除命中的首个文档。
func (c *MemoryCollection) DeleteOne(_ context.Context, filter bson.M) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, doc := range c.docs {
		if matchFilter(doc, filter) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// CountDocuments 统计命中文档数。
func (c *MemoryCollection) CountDocuments(_ context.Context, filter bson.M) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	for _, doc := range c.docs {
		if matchFilter(doc, filter) {
			n++
		}
	}
	return n, nil
}

// toBSONMap 通过 BSON 编解码归一化任意文档为 bson.M。
func toBSONMap(doc any) (bson.M, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeBSONMap(m bson.M, out any) error {
	data, err := bson.Marshal(m)
	if err != nil {
		return err
	}
	return bson.Unmarshal(data, out)
}

// matchFilter 判断文档是否满足过滤条件：等值匹配或操作符子文档。
func matchFilter(doc bson.M, filter bson.M) bool {
	for key, cond := range filter {
		switch c := cond.(type) {
		case bson.M:
			for op, bound := range c {
				cmp := compareValues(doc[key], bound)
				switch op {
				case "$gte":
					if cmp < 0 {
						return false
					}
				case "$lte":
					if cmp > 0 {
						return false
					}
				case "$gt":
					if cmp <= 0 {
						return false
					}
				case "$lt":
					if cmp >= 0 {
						return false
					}
				case "$ne":
					if cmp == 0 {
						return false
					}
				default:
					return false
				}
			}
		default:
			if compareValues(doc[key], cond) != 0 {
				return false
			}
		}
	}
	return true
}

// compareValues 比较两个经 BSON 归一化的值，返回 -1/0/1。
func compareValues(a, b any) int {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return strings.Compare(as, bs)
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case primitive.DateTime:
		return float64(n), true
	case time.Time:
		return float64(n.UnixMilli()), true
	default:
		return 0, false
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
