// Package month содержит календарную арифметику для месячных отчетов.
package month

import (
	"fmt"
	"time"
)

// Key возвращает ключ календарного месяца в формате "M-YYYY",
// номер месяца без ведущего нуля.
func Key(t time.Time) string {
	return fmt.Sprintf("%d-%d", int(t.Month()), t.Year())
}

// Start обрезает момент времени до начала его календарного месяца.
func Start(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Buckets возвращает начала всех календарных месяцев, пересекающих окно
// [start, end], от самого старого к самому новому.
func Buckets(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	var result []time.Time
	for cur := Start(start); !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		result = append(result, cur)
	}
	return result
}
