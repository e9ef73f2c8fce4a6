package handler

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators 向 gin 的校验器注册自定义规则，可重复调用。
//
//	region: 非空、无首尾空白且不超过 64 个字符的区域键。
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		err = v.RegisterValidation("region", validRegion)
	})
	return err
}

func validRegion(fl validator.FieldLevel) bool {
	region := fl.Field().String()
	return region != "" && strings.TrimSpace(region) == region && utf8.RuneCountInString(region) <= 64
}
