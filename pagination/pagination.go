// Package pagination 提供分页请求参数与分页结果的通用封装。
package pagination

// Page 定义分页请求参数，通常来自查询字符串。
type Page struct {
	PageNum  int `json:"page" form:"page"` // 页码，从 1 开始。
	PageSize int `json:"size" form:"size"` // 每页记录数。
}

// Validate 校验分页参数合法性并落默认值；限制单页上限防止单次拉取过大。
func (p *Page) Validate() {
	if p.PageNum <= 0 {
		p.PageNum = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// Offset 计算查询偏移量。
func (p *Page) Offset() int {
	return (p.PageNum - 1) * p.PageSize
}

// Limit 返回查询限制数量。
func (p *Page) Limit() int {
	return p.PageSize
}

// PageResult 定义分页查询的返回结果。
type PageResult struct {
	Total    int64 `json:"total"`
	PageNum  int   `json:"page"`
	PageSize int   `json:"size"`
	Data     any   `json:"data"`
}

// NewPageResult 组装分页结果。
func NewPageResult(total int64, page *Page, data any) *PageResult {
	return &PageResult{
		Total:    total,
		PageNum:  page.PageNum,
		PageSize: page.PageSize,
		Data:     data,
	}
}

// TotalPages 计算总页数（向上取整）。
func (r *PageResult) TotalPages() int {
	if r.PageSize == 0 {
		return 0
	}
	pages := int(r.Total) / r.PageSize
	if int(r.Total)%r.PageSize > 0 {
		pages++
	}
	return pages
}

// HasNext 是否存在下一页。
func (r *PageResult) HasNext() bool {
	return r.PageNum < r.TotalPages()
}
