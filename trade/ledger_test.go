package trade

import (
	"context"
	"testing"
	"time"

	"github.com/daddysai/tradeledger/docstore"
	"github.com/daddysai/tradeledger/pagination"
	"github.com/shopspring/decimal"
)

func seedLedger(t *testing.T, l *Ledger, userID, tradeID, side string, qty, price float64, day time.Time, action Action) {
	t.Helper()
	tr := Trade{
		ID:        tradeID,
		UserID:    userID,
		Symbol:    "NIFTY",
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Timestamp: day,
		Version:   1,
	}
	err := l.Append(context.Background(), &LedgerEntry{
		UserID:  userID,
		TradeID: tradeID,
		Trade:   Snapshot{Trade: tr, Action: action},
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
}

func TestLedgerListByUserDateRange(t *testing.T) {
	l := NewLedger(docstore.NewMemoryCollection(), discardLogger())
	ctx := context.Background()

	days := []time.Time{
		time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 3, 10, 0, 0, 0, time.UTC),
	}
	for i, day := range days {
		seedLedger(t, l, "u1", "t"+string(rune('1'+i)), "BUY", 10, 100, day, ActionCreated)
	}
	// 其他用户的条目不可见。
	seedLedger(t, l, "u2", "x1", "BUY", 10, 100, days[0], ActionCreated)

	page := &pagination.Page{PageNum: 1, PageSize: 10}
	result, err := l.ListByUser(ctx, "u1", "2025-01-01", "2025-01-02", page)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("expected 2 entries in range, got %d", result.Total)
	}

	entries, ok := result.Data.([]LedgerEntry)
	if !ok {
		t.Fatalf("unexpected data type %T", result.Data)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// tradeDate 降序。
	if entries[0].TradeDate != "2025-01-02" || entries[1].TradeDate != "2025-01-01" {
		t.Errorf("entries not sorted by tradeDate desc: %s, %s",
			entries[0].TradeDate, entries[1].TradeDate)
	}
	for _, e := range entries {
		if e.UserID != "u1" {
			t.Errorf("foreign user entry leaked: %s", e.UserID)
		}
	}
}

func TestLedgerListByUserPagination(t *testing.T) {
	l := NewLedger(docstore.NewMemoryCollection(), discardLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		day := time.Date(2025, 2, 1+i, 10, 0, 0, 0, time.UTC)
		seedLedger(t, l, "u1", "t"+string(rune('1'+i)), "BUY", 10, 100, day, ActionCreated)
	}

	page := &pagination.Page{PageNum: 2, PageSize: 2}
	result, err := l.ListByUser(ctx, "u1", "", "", page)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if result.Total != 5 {
		t.Errorf("total = %d, want 5", result.Total)
	}
	entries := result.Data.([]LedgerEntry)
	if len(entries) != 2 {
		t.Fatalf("expected page of 2, got %d", len(entries))
	}
	// 第 2 页（降序）应为第 3、4 新的条目。
	if entries[0].TradeDate != "2025-02-03" || entries[1].TradeDate != "2025-02-02" {
		t.Errorf("unexpected page contents: %s, %s", entries[0].TradeDate, entries[1].TradeDate)
	}
}

func TestLedgerSummarize(t *testing.T) {
	l := NewLedger(docstore.NewMemoryCollection(), discardLogger())
	ctx := context.Background()

	day1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)

	seedLedger(t, l, "u1", "t1", "BUY", 50, 100.5, day1, ActionCreated)
	seedLedger(t, l, "u1", "t2", "SELL", 20, 200, day1, ActionCreated)
	// 非 created 条目计入变更次数，但不计入买卖量与成交额。
	seedLedger(t, l, "u1", "t1", "BUY", 50, 100.5, day1, ActionUpdated)
	seedLedger(t, l, "u1", "t3", "BUY", 10, 99.99, day2, ActionCreated)

	summaries, err := l.Summarize(ctx, "u1", "", "")
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 daily summaries, got %d", len(summaries))
	}

	// 降序：day2 在前。
	if summaries[0].TradeDate != "2025-01-02" {
		t.Errorf("first summary date = %s, want 2025-01-02", summaries[0].TradeDate)
	}

	d1 := summaries[1]
	if d1.Mutations != 3 {
		t.Errorf("day1 mutations = %d, want 3", d1.Mutations)
	}
	if !d1.BoughtQuantity.Equal(decimal.NewFromInt(50)) {
		t.Errorf("day1 boughtQuantity = %s, want 50", d1.BoughtQuantity)
	}
	if !d1.SoldQuantity.Equal(decimal.NewFromInt(20)) {
		t.Errorf("day1 soldQuantity = %s, want 20", d1.SoldQuantity)
	}
	// 50*100.5 + 20*200 = 5025 + 4000 = 9025，十进制运算不应有浮点误差。
	if !d1.Turnover.Equal(decimal.NewFromInt(9025)) {
		t.Errorf("day1 turnover = %s, want 9025", d1.Turnover)
	}

	d2 := summaries[0]
	want := decimal.NewFromFloat(10 * 99.99)
	if !d2.Turnover.Equal(decimal.NewFromFloat(99.99).Mul(decimal.NewFromInt(10))) {
		t.Errorf("day2 turnover = %s, want %s", d2.Turnover, want)
	}
}
