package trade

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/daddysai/tradeledger/docstore"
	"github.com/daddysai/tradeledger/pagination"
	"github.com/daddysai/tradeledger/xerrors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

// Ledger 封装账本集合的追加与检索。条目一经写入即不可变。
type Ledger struct {
	col    docstore.Collection
	logger *slog.Logger
}

// NewLedger 创建账本访问器。
func NewLedger(col docstore.Collection, logger *slog.Logger) *Ledger {
	return &Ledger{col: col, logger: logger}
}

// Append 追加一条账本记录，补齐 tradeDate 与服务端写入时间。
func (l *Ledger) Append(ctx context.Context, entry *LedgerEntry) error {
	if entry.TradeDate == "" {
		entry.TradeDate = entry.Trade.TradeDate()
	}
	entry.CreatedAt = time.Now().UTC()

	if _, err := l.col.InsertOne(ctx, entry); err != nil {
		return err
	}
	return nil
}

// ledgerFilter 构造按用户与可选日期区间（含端点）的查询条件。
func ledgerFilter(userID, startDate, endDate string) bson.M {
	filter := bson.M{"userId": userID}
	dateRange := bson.M{}
	if startDate != "" {
		dateRange["$gte"] = startDate
	}
	if endDate != "" {
		dateRange["$lte"] = endDate
	}
	if len(dateRange) > 0 {
		filter["tradeDate"] = dateRange
	}
	return filter
}

// ListByUser 按用户分页检索账本，支持可选的 tradeDate 日期区间，
// 结果按 tradeDate 降序、同日按 createdAt 降序。
func (l *Ledger) ListByUser(ctx context.Context, userID, startDate, endDate string, page *pagination.Page) (*pagination.PageResult, error) {
	page.Validate()
	filter := ledgerFilter(userID, startDate, endDate)

	total, err := l.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, xerrors.New(xerrors.ErrInternal, CodeStoreInternal, "failed to count ledger entries", "", err)
	}

	var entries []LedgerEntry
	err = l.col.Find(ctx, filter, docstore.FindOptions{
		Sort:  bson.D{{Key: "tradeDate", Value: -1}, {Key: "createdAt", Value: -1}},
		Skip:  int64(page.Offset()),
		Limit: int64(page.Limit()),
	}, &entries)
	if err != nil {
		return nil, xerrors.New(xerrors.ErrInternal, CodeStoreInternal, "failed to list ledger entries", "", err)
	}

	return pagination.NewPageResult(total, page, entries), nil
}

// DailySummary 单个交易日的账本滚动汇总。
// 数量与成交额使用精确十进制运算，不做浮点累加。
type DailySummary struct {
	TradeDate      string          `json:"tradeDate"`
	Mutations      int             `json:"mutations"`
	BoughtQuantity decimal.Decimal `json:"boughtQuantity"`
	SoldQuantity   decimal.Decimal `json:"soldQuantity"`
	Turnover       decimal.Decimal `json:"turnover"`
}

// Summarize 按交易日汇总用户账本：每日变更次数，以及 created 条目的
// 买入/卖出数量与名义成交额。结果按日期降序。
func (l *Ledger) Summarize(ctx context.Context, userID, startDate, endDate string) ([]DailySummary, error) {
	filter := ledgerFilter(userID, startDate, endDate)

	var entries []LedgerEntry
	err := l.col.Find(ctx, filter, docstore.FindOptions{
		Sort: bson.D{{Key: "tradeDate", Value: -1}},
	}, &entries)
	if err != nil {
		return nil, xerrors.New(xerrors.ErrInternal, CodeStoreInternal, "failed to load ledger entries", "", err)
	}

	byDate := make(map[string]*DailySummary)
	for i := range entries {
		entry := &entries[i]
		day, ok := byDate[entry.TradeDate]
		if !ok {
			day = &DailySummary{
				TradeDate:      entry.TradeDate,
				BoughtQuantity: decimal.Zero,
				SoldQuantity:   decimal.Zero,
				Turnover:       decimal.Zero,
			}
			byDate[entry.TradeDate] = day
		}
		day.Mutations++

		if entry.Trade.Action != ActionCreated {
			continue
		}
		qty := decimal.NewFromFloat(entry.Trade.Quantity)
		notional := qty.Mul(decimal.NewFromFloat(entry.Trade.Price))
		switch entry.Trade.Side {
		case "BUY":
			day.BoughtQuantity = day.BoughtQuantity.Add(qty)
		case "SELL":
			day.SoldQuantity = day.SoldQuantity.Add(qty)
		}
		day.Turnover = day.Turnover.Add(notional)
	}

	summaries := make([]DailySummary, 0, len(byDate))
	for _, day := range byDate {
		summaries = append(summaries, *day)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].TradeDate > summaries[j].TradeDate
	})
	return summaries, nil
}
