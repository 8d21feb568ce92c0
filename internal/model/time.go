package model

import "time"

// isoLayout 与浏览器 Date.toISOString() 的输出格式一致（UTC，毫秒精度）。
const isoLayout = "2006-01-02T15:04:05.000Z"

// FormatISO 将时间格式化为 ISO-8601 字符串。
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// NowISO 返回当前时间的 ISO-8601 字符串。
func NowISO() string {
	return FormatISO(time.Now())
}

// ParseISO 解析 FormatISO 产生的字符串，同时接受 RFC3339。
func ParseISO(s string) (time.Time, error) {
	if t, err := time.Parse(isoLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
