// Package validator 封装 go-playground/validator，
// 把第一个校验失败转换成字段级的 errors.FieldError。
package validator

import (
	"context"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "course-signup/pkg/errors"
)

var (
	global      *validator.Validate
	digits5Rule = regexp.MustCompile(`^[0-9]{5}$`)
)

func init() {
	global = New()
}

// New 创建带自定义规则的校验器，字段名取 json tag
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("digits5", func(fl validator.FieldLevel) bool {
		return digits5Rule.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Struct 校验结构体，返回第一个字段错误
func Struct(ctx context.Context, s interface{}) error {
	return toFieldError(global.StructCtx(ctx, s), "")
}

// Var 校验单个字段
func Var(ctx context.Context, field string, value interface{}, tag string) error {
	return toFieldError(global.VarCtx(ctx, value, tag), field)
}

func toFieldError(err error, field string) error {
	if err == nil {
		return nil
	}
	vErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(vErrors) == 0 {
		return apperrors.NewFieldError(field, err.Error())
	}
	fe := vErrors[0]
	if field == "" {
		field = fe.Field()
	}
	return apperrors.NewFieldError(field, message(fe))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "不能为空"
	case "digits5":
		return "必须是 5 位数字"
	case "uuid", "uuid_rfc4122":
		return "必须是有效的 UUID"
	case "oneof":
		return "必须是以下值之一: " + fe.Param()
	case "max":
		return "超过最大长度 " + fe.Param()
	case "min":
		return "低于最小值 " + fe.Param()
	case "gte":
		return "不能小于 " + fe.Param()
	default:
		return "格式无效"
	}
}
