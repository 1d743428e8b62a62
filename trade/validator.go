package trade

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator 对交易载荷做纯粹的形状校验：必填字段、类型、数值非负。
// 不做任何跨字段业务规则（不校验价格区间、标的是否存在等）。
type Validator struct {
	validate *validator.Validate
}

// NewValidator 创建交易载荷校验器。
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate 校验候选交易，返回是否合法及字段级错误列表。
// 校验失败不产生任何写入。
func (v *Validator) Validate(t *Trade) (bool, []string) {
	err := v.validate.Struct(t)
	if err == nil {
		return true, nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false, []string{err.Error()}
	}

	fieldErrs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fieldErrs = append(fieldErrs, fmt.Sprintf("%s: failed on '%s'", fe.Field(), fe.Tag()))
	}
	return false, fieldErrs
}
