package trade

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/daddysai/tradeledger/docstore"
	"github.com/daddysai/tradeledger/idgen"
	"github.com/daddysai/tradeledger/metrics"
	"github.com/daddysai/tradeledger/xerrors"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
)

// Store 交易记录的写路径核心。保证每一次被接受的变更都先后完成主集合
// 写入与账本追加；两个集合之间没有跨集合事务，原子性由每个操作内的
// 严格写入顺序加补偿动作尽力逼近：
//   - Create: 先写 trades 再追加账本，账本失败则补偿删除刚插入的记录；
//   - Update: 先更新 trades 再追加账本，账本失败不回滚，以部分成功上报；
//   - Delete: 先追加账本再物理删除，账本失败则中止，记录原样保留。
type Store struct {
	trades    docstore.Collection
	ledger    *Ledger
	validator *Validator
	logger    *slog.Logger

	mutationsTotal     *prometheus.CounterVec // 维度: action, outcome
	ledgerFailureTotal *prometheus.CounterVec // 维度: action
}

// NewStore 创建交易存储。metrics 可为 nil（测试场景）。
func NewStore(trades docstore.Collection, ledger *Ledger, m *metrics.Metrics, logger *slog.Logger) *Store {
	s := &Store{
		trades:    trades,
		ledger:    ledger,
		validator: NewValidator(),
		logger:    logger,
	}

	if m != nil {
		s.mutationsTotal = m.NewCounterVec(prometheus.CounterOpts{
			Name: "trade_mutations_total",
			Help: "Total trade mutations by action and outcome.",
		}, []string{"action", "outcome"})
		s.ledgerFailureTotal = m.NewCounterVec(prometheus.CounterOpts{
			Name: "trade_ledger_failures_total",
			Help: "Total ledger append failures by action.",
		}, []string{"action"})
	}

	return s
}

func (s *Store) countMutation(action Action, outcome string) {
	if s.mutationsTotal != nil {
		s.mutationsTotal.WithLabelValues(string(action), outcome).Inc()
	}
}

func (s *Store) countLedgerFailure(action Action) {
	if s.ledgerFailureTotal != nil {
		s.ledgerFailureTotal.WithLabelValues(string(action)).Inc()
	}
}

func invalidTrade(fieldErrs []string) *xerrors.Error {
	return xerrors.New(xerrors.ErrInvalidArg, CodeInvalidTrade,
		"invalid trade payload", strings.Join(fieldErrs, "; "), nil)
}

// Create 校验并插入新交易，随后追加 created 账本条目。
// 账本追加失败时补偿删除刚插入的记录，并且无论补偿结果如何都返回
// 账本写入失败；补偿本身失败属于更严重的不一致，仅记录日志。
func (s *Store) Create(ctx context.Context, t *Trade) (string, error) {
	if ok, fieldErrs := s.validator.Validate(t); !ok {
		s.countMutation(ActionCreated, "invalid")
		return "", invalidTrade(fieldErrs)
	}

	if t.ID == "" {
		t.ID = idgen.GenIDString()
	}
	t.Version = 1

	if _, err := s.trades.InsertOne(ctx, t); err != nil {
		s.countMutation(ActionCreated, "error")
		return "", xerrors.New(xerrors.ErrInternal, CodeStoreInternal,
			"failed to insert trade", "", err).WithContext("tradeId", t.ID)
	}

	entry := &LedgerEntry{
		UserID:  t.UserID,
		TradeID: t.ID,
		Trade:   Snapshot{Trade: *t, Action: ActionCreated},
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		s.countLedgerFailure(ActionCreated)
		s.logger.ErrorContext(ctx, "ledger append failed on create, rolling back trade insert",
			"trade_id", t.ID, "user_id", t.UserID, "error", err)

		if _, rbErr := s.trades.DeleteOne(ctx, bson.M{"id": t.ID, "userId": t.UserID}); rbErr != nil {
			// 补偿删除失败：trades 中存在一条没有账本记录的交易。
			s.logger.ErrorContext(ctx, "compensating rollback failed, unaudited trade left in trades",
				"trade_id", t.ID, "user_id", t.UserID, "error", rbErr)
		}

		s.countMutation(ActionCreated, "ledger_failed")
		return "", xerrors.New(xerrors.ErrInternal, CodeLedgerWriteFailed,
			"failed to write ledger entry", "", err).WithContext("tradeId", t.ID)
	}

	s.countMutation(ActionCreated, "success")
	return t.ID, nil
}

// Update 按 (tradeId, userId) 更新交易并追加 updated 账本条目。
// 载荷携带非零 version 且与存量不符时拒绝（版本冲突）。
// 账本追加失败时不回滚已生效的字段更新：部分字段合并的回滚风险高于
// 保留不一致，结果以 AuditFailed 标记区别于完全成功返回。
func (s *Store) Update(ctx context.Context, tradeID string, updates *Trade) (*UpdateResult, error) {
	if ok, fieldErrs := s.validator.Validate(updates); !ok {
		s.countMutation(ActionUpdated, "invalid")
		return nil, invalidTrade(fieldErrs)
	}

	existing, err := s.findOwned(ctx, tradeID, updates.UserID)
	if err != nil {
		s.countMutation(ActionUpdated, "not_found")
		return nil, err
	}

	if updates.Version != 0 && updates.Version != existing.Version {
		s.countMutation(ActionUpdated, "conflict")
		return nil, xerrors.New(xerrors.ErrConflict, CodeVersionConflict,
			"trade was modified by another request", "", nil).
			WithContext("tradeId", tradeID).
			WithContext("expectedVersion", updates.Version).
			WithContext("currentVersion", existing.Version)
	}

	merged := *updates
	merged.ID = tradeID
	merged.Version = existing.Version + 1

	matched, modified, err := s.trades.UpdateOne(ctx,
		bson.M{"id": tradeID, "userId": updates.UserID},
		bson.M{"$set": bson.M{
			"symbol":    merged.Symbol,
			"side":      merged.Side,
			"quantity":  merged.Quantity,
			"price":     merged.Price,
			"timestamp": merged.Timestamp,
			"strategy":  merged.Strategy,
			"version":   merged.Version,
		}})
	if err != nil {
		s.countMutation(ActionUpdated, "error")
		return nil, xerrors.New(xerrors.ErrInternal, CodeStoreInternal,
			"failed to update trade", "", err).WithContext("tradeId", tradeID)
	}

	result := &UpdateResult{
		MatchedCount:  matched,
		ModifiedCount: modified,
		Version:       merged.Version,
	}

	now := time.Now().UTC()
	entry := &LedgerEntry{
		UserID:  merged.UserID,
		TradeID: tradeID,
		Trade: Snapshot{
			Trade:         merged,
			Action:        ActionUpdated,
			PreviousState: existing,
			UpdatedAt:     &now,
		},
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		s.countLedgerFailure(ActionUpdated)
		s.logger.ErrorContext(ctx, "ledger append failed on update, primary update kept",
			"trade_id", tradeID, "user_id", merged.UserID, "error", err)
		result.AuditFailed = true
		s.countMutation(ActionUpdated, "ledger_failed")
		return result, nil
	}

	s.countMutation(ActionUpdated, "success")
	return result, nil
}

// Delete 删除交易。账本条目先于物理删除写入：账本失败则中止且记录
// 原样保留；账本提交后物理删除未命中任何文档时返回删除失败，
// 已提交的账本条目保持原样不撤销。
func (s *Store) Delete(ctx context.Context, tradeID, userID string) (int64, error) {
	existing, err := s.findOwned(ctx, tradeID, userID)
	if err != nil {
		s.countMutation(ActionDeleted, "not_found")
		return 0, err
	}

	now := time.Now().UTC()
	entry := &LedgerEntry{
		UserID:  userID,
		TradeID: tradeID,
		Trade: Snapshot{
			Trade:         *existing,
			Action:        ActionDeleted,
			PreviousState: existing,
			DeletedAt:     &now,
		},
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		s.countLedgerFailure(ActionDeleted)
		s.countMutation(ActionDeleted, "ledger_failed")
		s.logger.ErrorContext(ctx, "ledger append failed on delete, trade left intact",
			"trade_id", tradeID, "user_id", userID, "error", err)
		return 0, xerrors.New(xerrors.ErrInternal, CodeLedgerWriteFailed,
			"failed to write ledger entry", "", err).WithContext("tradeId", tradeID)
	}

	deleted, err := s.trades.DeleteOne(ctx, bson.M{"id": tradeID, "userId": userID})
	if err != nil {
		s.countMutation(ActionDeleted, "error")
		return 0, xerrors.New(xerrors.ErrInternal, CodeStoreInternal,
			"failed to delete trade", "", err).WithContext("tradeId", tradeID)
	}
	if deleted == 0 {
		s.countMutation(ActionDeleted, "delete_failed")
		s.logger.ErrorContext(ctx, "physical delete matched no document after ledger commit",
			"trade_id", tradeID, "user_id", userID)
		return 0, xerrors.New(xerrors.ErrInternal, CodeDeleteFailed,
			"failed to delete trade record", "ledger entry committed but delete matched no document", nil).
			WithContext("tradeId", tradeID)
	}

	s.countMutation(ActionDeleted, "success")
	return deleted, nil
}

// Get 按归属读取单条交易；不存在或不属于该用户返回 NotFound。
func (s *Store) Get(ctx context.Context, tradeID, userID string) (*Trade, error) {
	return s.findOwned(ctx, tradeID, userID)
}

// List 返回用户的全部交易，按 timestamp 降序（最新在前）。
func (s *Store) List(ctx context.Context, userID string) ([]Trade, error) {
	var trades []Trade
	err := s.trades.Find(ctx, bson.M{"userId": userID}, docstore.FindOptions{
		Sort: bson.D{{Key: "timestamp", Value: -1}},
	}, &trades)
	if err != nil {
		return nil, xerrors.New(xerrors.ErrInternal, CodeStoreInternal,
			"failed to list trades", "", err).WithContext("userId", userID)
	}
	return trades, nil
}

func (s *Store) findOwned(ctx context.Context, tradeID, userID string) (*Trade, error) {
	var t Trade
	err := s.trades.FindOne(ctx, bson.M{"id": tradeID, "userId": userID}, &t)
	if err != nil {
		if errors.Is(err, docstore.ErrNoDocuments) {
			return nil, xerrors.New(xerrors.ErrNotFound, CodeTradeNotFound,
				"trade not found", "", nil).WithContext("tradeId", tradeID)
		}
		return nil, xerrors.New(xerrors.ErrInternal, CodeStoreInternal,
			"failed to load trade", "", err).WithContext("tradeId", tradeID)
	}
	return &t, nil
}
