package trade

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/daddysai/tradeledger/docstore"
	"go.mongodb.org/mongo-driver/bson"
)

var errLedgerDown = errors.New("ledger collection unavailable")

// failingCollection 包装集合并按需注入插入/删除故障。
type failingCollection struct {
	docstore.Collection
	failInsert bool
	zeroDelete bool
}

func (f *failingCollection) InsertOne(ctx context.Context, doc any) (string, error) {
	if f.failInsert {
		return "", errLedgerDown
	}
	return f.Collection.InsertOne(ctx, doc)
}

func (f *failingCollection) DeleteOne(ctx context.Context, filter bson.M) (int64, error) {
	if f.zeroDelete {
		return 0, nil
	}
	return f.Collection.DeleteOne(ctx, filter)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(tradesCol, ledgerCol docstore.Collection) *Store {
	logger := discardLogger()
	return NewStore(tradesCol, NewLedger(ledgerCol, logger), nil, logger)
}

func validTrade(id, userID string, ts time.Time) *Trade {
	return &Trade{
		ID:        id,
		UserID:    userID,
		Symbol:    "NIFTY",
		Side:      "BUY",
		Quantity:  50,
		Price:     100,
		Timestamp: ts,
	}
}

func TestCreateWritesTradeAndLedgerEntry(t *testing.T) {
	trades := docstore.NewMemoryCollection()
	ledger := docstore.NewMemoryCollection()
	store := newTestStore(trades, ledger)
	ctx := context.Background()

	ts := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	tradeID, err := store.Create(ctx, validTrade("t1", "u1", ts))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tradeID != "t1" {
		t.Errorf("expected tradeId t1, got %s", tradeID)
	}

	n, _ := trades.CountDocuments(ctx, bson.M{"id": "t1", "userId": "u1"})
	if n != 1 {
		t.Errorf("expected exactly 1 trade row, got %d", n)
	}

	var entry LedgerEntry
	if err := ledger.FindOne(ctx, bson.M{"tradeId": "t1"}, &entry); err != nil {
		t.Fatalf("ledger entry missing: %v", err)
	}
	if entry.Trade.Action != ActionCreated {
		t.Errorf("expected action created, got %s", entry.Trade.Action)
	}
	if entry.TradeDate != "2025-01-01" {
		t.Errorf("expected tradeDate 2025-01-01, got %s", entry.TradeDate)
	}
	if entry.UserID != "u1" {
		t.Errorf("expected userId u1, got %s", entry.UserID)
	}
}

func TestCreateGeneratesIDWhenAbsent(t *testing.T) {
	store := newTestStore(docstore.NewMemoryCollection(), docstore.NewMemoryCollection())

	tr := validTrade("", "u1", time.Now().UTC())
	tradeID, err := store.Create(context.Background(), tr)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tradeID == "" {
		t.Error("expected generated trade id")
	}
}

func TestCreateLedgerFailureRollsBackInsert(t *testing.T) {
	trades := docstore.NewMemoryCollection()
	ledger := &failingCollection{Collection: docstore.NewMemoryCollection(), failInsert: true}
	store := newTestStore(trades, ledger)
	ctx := context.Background()

	_, err := store.Create(ctx, validTrade("t1", "u1", time.Now().UTC()))
	if err == nil {
		t.Fatal("expected ledger write failure")
	}
	assertCode(t, err, CodeLedgerWriteFailed)

	n, _ := trades.CountDocuments(ctx, bson.M{"id": "t1"})
	if n != 0 {
		t.Errorf("expected rollback to remove trade, found %d rows", n)
	}
}

func TestUpdatePartialSuccessOnLedgerFailure(t *testing.T) {
	trades := docstore.NewMemoryCollection()
	inner := docstore.NewMemoryCollection()
	ledger := &failingCollection{Collection: inner}
	store := newTestStore(trades, ledger)
	ctx := context.Background()

	if _, err := store.Create(ctx, validTrade("t1", "u1", time.Now().UTC())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ledger.failInsert = true

	updates := validTrade("t1", "u1", time.Now().UTC())
	updates.Price = 120
	result, err := store.Update(ctx, "t1", updates)
	if err != nil {
		t.Fatalf("expected partial success, got error: %v", err)
	}
	if !result.AuditFailed {
		t.Error("expected AuditFailed to be set")
	}

	var stored Trade
	if err := trades.FindOne(ctx, bson.M{"id": "t1", "userId": "u1"}, &stored); err != nil {
		t.Fatalf("trade missing after partial update: %v", err)
	}
	if stored.Price != 120 {
		t.Errorf("expected primary update applied, price = %v", stored.Price)
	}
}

func TestUpdateFullSuccessAppendsLedgerEntry(t *testing.T) {
	trades := docstore.NewMemoryCollection()
	ledger := docstore.NewMemoryCollection()
	store := newTestStore(trades, ledger)
	ctx := context.Background()

	if _, err := store.Create(ctx, validTrade("t1", "u1", time.Now().UTC())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updates := validTrade("t1", "u1", time.Now().UTC())
	updates.Quantity = 75
	result, err := store.Update(ctx, "t1", updates)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if result.AuditFailed {
		t.Error("unexpected AuditFailed on full success")
	}
	if result.Version != 2 {
		t.Errorf("expected version 2 after update, got %d", result.Version)
	}

	var entries []LedgerEntry
	if err := ledger.Find(ctx, bson.M{"tradeId": "t1"}, docstore.FindOptions{}, &entries); err != nil {
		t.Fatalf("failed to load ledger entries: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Trade.Action != ActionUpdated {
			continue
		}
		found = true
		if e.Trade.PreviousState == nil {
			t.Error("updated entry missing previousState")
		} else if e.Trade.PreviousState.Quantity != 50 {
			t.Errorf("previousState quantity = %v, want 50", e.Trade.PreviousState.Quantity)
		}
	}
	if !found {
		t.Error("no updated ledger entry written")
	}
}

func TestUpdateVersionConflict(t *testing.T) {
	store := newTestStore(docstore.NewMemoryCollection(), docstore.NewMemoryCollection())
	ctx := context.Background()

	if _, err := store.Create(ctx, validTrade("t1", "u1", time.Now().UTC())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updates := validTrade("t1", "u1", time.Now().UTC())
	updates.Version = 99
	_, err := store.Update(ctx, "t1", updates)
	if err == nil {
		t.Fatal("expected version conflict")
	}
	assertCode(t, err, CodeVersionConflict)
}

func TestDeleteLedgerFirstOrdering(t *testing.T) {
	trades := docstore.NewMemoryCollection()
	inner := docstore.NewMemoryCollection()
	ledger := &failingCollection{Collection: inner}
	store := newTestStore(trades, ledger)
	ctx := context.Background()

	if _, err := store.Create(ctx, validTrade("t1", "u1", time.Now().UTC())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	ledger.failInsert = true

	_, err := store.Delete(ctx, "t1", "u1")
	if err == nil {
		t.Fatal("expected ledger write failure to abort delete")
	}
	assertCode(t, err, CodeLedgerWriteFailed)

	n, _ := trades.CountDocuments(ctx, bson.M{"id": "t1"})
	if n != 1 {
		t.Errorf("trade must remain intact after ledger failure, found %d rows", n)
	}
}

func TestDeleteFailedAfterLedgerCommit(t *testing.T) {
	trades := &failingCollection{Collection: docstore.NewMemoryCollection(), zeroDelete: true}
	ledger := docstore.NewMemoryCollection()
	store := newTestStore(trades, ledger)
	ctx := context.Background()

	if _, err := store.Create(ctx, validTrade("t1", "u1", time.Now().UTC())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err := store.Delete(ctx, "t1", "u1")
	if err == nil {
		t.Fatal("expected delete failure when physical delete matches nothing")
	}
	assertCode(t, err, CodeDeleteFailed)

	// 已提交的 deleted 账本条目保持原样。
	var entries []LedgerEntry
	if err := ledger.Find(ctx, bson.M{"tradeId": "t1"}, docstore.FindOptions{}, &entries); err != nil {
		t.Fatalf("failed to load ledger entries: %v", err)
	}
	deletedSeen := false
	for _, e := range entries {
		if e.Trade.Action == ActionDeleted {
			deletedSeen = true
		}
	}
	if !deletedSeen {
		t.Error("deleted ledger entry should stand after failed physical delete")
	}
}

func TestDeleteScenarioKeepsFullAuditTrail(t *testing.T) {
	trades := docstore.NewMemoryCollection()
	ledger := docstore.NewMemoryCollection()
	store := newTestStore(trades, ledger)
	ctx := context.Background()

	ts := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	original := validTrade("t1", "u1", ts)
	if _, err := store.Create(ctx, original); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	deleted, err := store.Delete(ctx, "t1", "u1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected deletedCount 1, got %d", deleted)
	}

	n, _ := trades.CountDocuments(ctx, bson.M{"id": "t1"})
	if n != 0 {
		t.Errorf("trade should be physically removed, found %d rows", n)
	}

	var entries []LedgerEntry
	if err := ledger.Find(ctx, bson.M{"tradeId": "t1"}, docstore.FindOptions{
		Sort: bson.D{{Key: "createdAt", Value: 1}},
	}, &entries); err != nil {
		t.Fatalf("failed to load ledger entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ledger entries (created, deleted), got %d", len(entries))
	}

	last := entries[len(entries)-1]
	if last.Trade.Action != ActionDeleted {
		t.Errorf("last entry action = %s, want deleted", last.Trade.Action)
	}
	if last.Trade.PreviousState == nil {
		t.Fatal("deleted entry missing previousState")
	}
	if last.Trade.PreviousState.Symbol != original.Symbol ||
		last.Trade.PreviousState.Quantity != original.Quantity ||
		last.Trade.PreviousState.Price != original.Price {
		t.Error("previousState does not match the original document")
	}
	if last.Trade.DeletedAt == nil {
		t.Error("deleted entry missing deletedAt")
	}
}

func TestOwnershipScoping(t *testing.T) {
	store := newTestStore(docstore.NewMemoryCollection(), docstore.NewMemoryCollection())
	ctx := context.Background()

	if _, err := store.Create(ctx, validTrade("t1", "userA", time.Now().UTC())); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := store.Get(ctx, "t1", "userB"); err == nil {
		t.Error("Get with foreign userId must return NotFound")
	} else {
		assertCode(t, err, CodeTradeNotFound)
	}

	updates := validTrade("t1", "userB", time.Now().UTC())
	if _, err := store.Update(ctx, "t1", updates); err == nil {
		t.Error("Update with foreign userId must return NotFound")
	} else {
		assertCode(t, err, CodeTradeNotFound)
	}

	if _, err := store.Delete(ctx, "t1", "userB"); err == nil {
		t.Error("Delete with foreign userId must return NotFound")
	} else {
		assertCode(t, err, CodeTradeNotFound)
	}
}

func TestInvalidPayloadProducesNoWrites(t *testing.T) {
	trades := docstore.NewMemoryCollection()
	ledger := docstore.NewMemoryCollection()
	store := newTestStore(trades, ledger)
	ctx := context.Background()

	invalid := &Trade{UserID: "u1", Symbol: "NIFTY"} // 缺少 side/quantity/price/timestamp
	if _, err := store.Create(ctx, invalid); err == nil {
		t.Fatal("expected validation failure")
	} else {
		assertCode(t, err, CodeInvalidTrade)
	}

	if n, _ := trades.CountDocuments(ctx, bson.M{}); n != 0 {
		t.Errorf("invalid create must not write trades, found %d rows", n)
	}
	if n, _ := ledger.CountDocuments(ctx, bson.M{}); n != 0 {
		t.Errorf("invalid create must not write ledger, found %d rows", n)
	}
}

func TestListOrderingNewestFirst(t *testing.T) {
	store := newTestStore(docstore.NewMemoryCollection(), docstore.NewMemoryCollection())
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"t1", "t2", "t3"} {
		tr := validTrade(id, "u1", base.Add(time.Duration(i)*time.Hour))
		if _, err := store.Create(ctx, tr); err != nil {
			t.Fatalf("Create %s failed: %v", id, err)
		}
	}

	trades, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(trades))
	}
	want := []string{"t3", "t2", "t1"}
	for i, w := range want {
		if trades[i].ID != w {
			t.Errorf("position %d: got %s, want %s", i, trades[i].ID, w)
		}
	}
}

func assertCode(t *testing.T, err error, wantCode int) {
	t.Helper()
	type coder interface{ BusinessCode() int }
	c, ok := err.(coder)
	if !ok {
		t.Fatalf("error %v does not carry a business code", err)
	}
	if c.BusinessCode() != wantCode {
		t.Errorf("business code = %d, want %d", c.BusinessCode(), wantCode)
	}
}
