// Package api 注册 HTTP 路由并将交易与账本操作映射为统一响应。
package api

import (
	"github.com/daddysai/tradeledger/middleware"
	"github.com/daddysai/tradeledger/pagination"
	"github.com/daddysai/tradeledger/response"
	"github.com/daddysai/tradeledger/trade"
	"github.com/daddysai/tradeledger/xerrors"
	"github.com/gin-gonic/gin"
)

// TradeHandler 交易记录的 HTTP 处理器。
type TradeHandler struct {
	store  *trade.Store
	ledger *trade.Ledger
}

// NewTradeHandler 创建处理器。
func NewTradeHandler(store *trade.Store, ledger *trade.Ledger) *TradeHandler {
	return &TradeHandler{store: store, ledger: ledger}
}

// resolveUserID 确定本次请求的归属用户。
// 开启认证时以会话身份为准；客户端另行携带 userId 且与会话不一致时拒绝。
// 未开启认证时退回显式参数。
func resolveUserID(c *gin.Context, supplied string) (string, *xerrors.Error) {
	sessionID, ok := middleware.GetUserID(c)
	if !ok {
		if supplied == "" {
			return "", xerrors.New(xerrors.ErrInvalidArg, trade.CodeMissingUserID,
				"userId is required", "", nil)
		}
		return supplied, nil
	}

	if supplied != "" && supplied != sessionID {
		return "", xerrors.PermissionDenied("userId does not match authenticated session")
	}
	return sessionID, nil
}

// ListTrades GET /api/trades?userId= 返回用户全部交易，按时间降序。
func (h *TradeHandler) ListTrades(c *gin.Context) {
	userID, xerr := resolveUserID(c, c.Query("userId"))
	if xerr != nil {
		response.Error(c, xerr)
		return
	}

	trades, err := h.store.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, trades)
}

// CreateTrade POST /api/trades 创建交易。
func (h *TradeHandler) CreateTrade(c *gin.Context) {
	var payload trade.Trade
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, xerrors.InvalidArg("malformed trade payload").WithDetail("%v", err))
		return
	}

	userID, xerr := resolveUserID(c, payload.UserID)
	if xerr != nil {
		response.Error(c, xerr)
		return
	}
	payload.UserID = userID

	tradeID, err := h.store.Create(c.Request.Context(), &payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"tradeId": tradeID})
}

// GetTrade GET /api/trades/:tradeId?userId= 按归属读取单条交易。
func (h *TradeHandler) GetTrade(c *gin.Context) {
	userID, xerr := resolveUserID(c, c.Query("userId"))
	if xerr != nil {
		response.Error(c, xerr)
		return
	}

	t, err := h.store.Get(c.Request.Context(), c.Param("tradeId"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, t)
}

// UpdateTrade PUT /api/trades/:tradeId 更新交易。
// 主记录已更新但账本追加失败时返回 207 部分成功。
func (h *TradeHandler) UpdateTrade(c *gin.Context) {
	var payload trade.Trade
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, xerrors.InvalidArg("malformed trade payload").WithDetail("%v", err))
		return
	}

	userID, xerr := resolveUserID(c, payload.UserID)
	if xerr != nil {
		response.Error(c, xerr)
		return
	}
	payload.UserID = userID

	result, err := h.store.Update(c.Request.Context(), c.Param("tradeId"), &payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.AuditFailed {
		response.PartialSuccess(c, "trade updated but ledger entry failed", result)
		return
	}
	response.Success(c, result)
}

// DeleteTrade DELETE /api/trades/:tradeId?userId= 删除交易。
func (h *TradeHandler) DeleteTrade(c *gin.Context) {
	userID, xerr := resolveUserID(c, c.Query("userId"))
	if xerr != nil {
		response.Error(c, xerr)
		return
	}

	deleted, err := h.store.Delete(c.Request.Context(), c.Param("tradeId"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deletedCount": deleted})
}

// ListLedger GET /api/ledger?userId=&startDate=&endDate=&page=&size=
// 按用户分页检索账本，支持含端点的日期区间过滤。
func (h *TradeHandler) ListLedger(c *gin.Context) {
	userID, xerr := resolveUserID(c, c.Query("userId"))
	if xerr != nil {
		response.Error(c, xerr)
		return
	}

	var page pagination.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, xerrors.InvalidArg("invalid pagination parameters").WithDetail("%v", err))
		return
	}

	result, err := h.ledger.ListByUser(c.Request.Context(), userID,
		c.Query("startDate"), c.Query("endDate"), &page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPagination(c, result.Data, result.Total, result.PageNum, result.PageSize)
}

// LedgerSummary GET /api/ledger/summary?userId=&startDate=&endDate=
// 按交易日汇总用户账本。
func (h *TradeHandler) LedgerSummary(c *gin.Context) {
	userID, xerr := resolveUserID(c, c.Query("userId"))
	if xerr != nil {
		response.Error(c, xerr)
		return
	}

	summaries, err := h.ledger.Summarize(c.Request.Context(), userID,
		c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summaries)
}
