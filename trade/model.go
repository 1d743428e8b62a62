// Package trade 实现交易记录的写路径与账本审计：每一次被接受的交易变更
// 都会在 ledger 集合中留下一条不可变的快照记录，并通过有序写入加补偿回滚
// 在没有跨集合事务的前提下尽力保证两个集合的一致性。
package trade

import (
	"time"
)

// Action 标识账本条目对应的变更类型。
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Trade 用户持有的单条买卖记录，trades 集合中的可变文档。
// 读写始终以 (id, userId) 为范围，防止跨用户访问。
type Trade struct {
	ID        string         `bson:"id"                 json:"id"`
	UserID    string         `bson:"userId"             json:"userId"    validate:"required"`
	Symbol    string         `bson:"symbol"             json:"symbol"    validate:"required"`
	Side      string         `bson:"side"               json:"side"      validate:"required"`
	Quantity  float64        `bson:"quantity"           json:"quantity"  validate:"required,gte=0"`
	Price     float64        `bson:"price"              json:"price"     validate:"required,gte=0"`
	Timestamp time.Time      `bson:"timestamp"          json:"timestamp" validate:"required"`
	Strategy  map[string]any `bson:"strategy,omitempty" json:"strategy,omitempty"`
	// Version 单调递增的乐观并发版本号，每次接受的更新加一。
	Version int64 `bson:"version" json:"version"`
}

// TradeDate 按交易时间截断出的日历日（UTC），账本按天分区检索的键。
func (t *Trade) TradeDate() string {
	return t.Timestamp.UTC().Format("2006-01-02")
}

// Snapshot 账本条目内嵌的交易快照：操作时刻的完整交易状态，
// 更新与删除另带变更前状态。
type Snapshot struct {
	Trade         `bson:",inline"`
	Action        Action     `bson:"action"                  json:"action"`
	PreviousState *Trade     `bson:"previousState,omitempty" json:"previousState,omitempty"`
	UpdatedAt     *time.Time `bson:"updatedAt,omitempty"     json:"updatedAt,omitempty"`
	DeletedAt     *time.Time `bson:"deletedAt,omitempty"     json:"deletedAt,omitempty"`
}

// LedgerEntry 追加写入的审计记录，每次被接受的交易变更恰好一条。
// 写入后不再修改或删除；trades 中的文档被物理删除后，其账本记录仍然永久保留。
type LedgerEntry struct {
	UserID    string    `bson:"userId"    json:"userId"`
	TradeDate string    `bson:"tradeDate" json:"tradeDate"`
	TradeID   string    `bson:"tradeId"   json:"tradeId"`
	Trade     Snapshot  `bson:"trade"     json:"trade"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// UpdateResult 更新操作的结果。AuditFailed 为真表示主记录已更新但账本
// 追加失败，调用方必须以区别于完全成功的状态上报（HTTP 207）。
type UpdateResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
	Version       int64 `json:"version"`
	AuditFailed   bool  `json:"auditFailed,omitempty"`
}
