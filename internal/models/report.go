package models

import "time"

// MonthCount — одна точка месячного отчета: ключ вида "M-YYYY"
// и количество активных подписок в этом месяце.
type MonthCount struct {
	Key   string `json:"key"`
	Value int    `json:"value"`
}

// ReportWindow — исторический интервал отчета.
type ReportWindow struct {
	Start time.Time
	End   time.Time
}
