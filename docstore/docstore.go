// Package docstore 定义文档库集合的最小操作面，并提供 MongoDB 适配实现。
// 交易与流水两个集合都通过该接口访问，便于在测试中注入故障或替换为内存实现。
package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNoDocuments 表示过滤条件未命中任何文档。
var ErrNoDocuments = errors.New("docstore: no documents in result")

// FindOptions 批量查询选项。
type FindOptions struct {
	Sort  bson.D // 排序字段，按声明顺序依次生效
	Skip  int64
	Limit int64
}

// Collection 定义按过滤条件操作的键控文档集合。
type Collection interface {
	// InsertOne 插入单个文档，返回存储层生成的主键（十六进制字符串）。
	InsertOne(ctx context.Context, doc any) (string, error)
	// FindOne 按过滤条件查询单个文档并反序列化到 out；未命中返回 ErrNoDocuments。
	FindOne(ctx context.Context, filter bson.M, out any) error
	// Find 按过滤条件查询多个文档并反序列化到 out（指向切片的指针）。
	Find(ctx context.Context, filter bson.M, opts FindOptions, out any) error
	// UpdateOne 对命中的首个文档执行 $set 更新，返回命中与修改计数。
	UpdateOne(ctx context.Context, filter bson.M, update bson.M) (matched, modified int64, err error)
	// DeleteOne 删除命中的首个文档，返回删除计数。
	DeleteOne(ctx context.Context, filter bson.M) (deleted int64, err error)
	// CountDocuments 统计命中文档数。
	CountDocuments(ctx context.Context, filter bson.M) (int64, error)
}
