package trade

// 业务错误码。错误大类与 HTTP 状态由 xerrors 映射，这里的码面向接口消费方。
const (
	CodeInvalidTrade      = 40001 // 载荷未通过校验
	CodeMissingUserID     = 40002 // 缺少 userId 参数
	CodeTradeNotFound     = 40401 // 目标交易不存在或不属于该用户
	CodeVersionConflict   = 40901 // 乐观并发版本号不匹配
	CodeLedgerWriteFailed = 50001 // 账本追加失败
	CodeDeleteFailed      = 50002 // 账本已提交但物理删除未命中
	CodeStoreInternal     = 50003 // 文档库或传输层意外故障
)
