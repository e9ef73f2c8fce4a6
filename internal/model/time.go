package model

import (
	"time"

	"github.com/goodsign/monday"
)

const spanishLongDateLayout = "Monday, 2 de January de 2006"

// SpanishLongDate 将时间格式化为 "lunes, 15 de enero de 2024"。
// 调用方负责先把时间转换到期望的时区。
func SpanishLongDate(t time.Time) string {
	return monday.Format(t, spanishLongDateLayout, monday.LocaleEsES)
}
