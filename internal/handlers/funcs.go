package handlers

import (
	"html/template"
	"strings"
	"time"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/models"
)

func defaultFuncs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("Jan 2, 2006")
		},
		"isoDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"statusClass": func(status string) string {
			switch status {
			case models.StatusCompleted:
				return "status-completed"
			case models.StatusProcessing:
				return "status-processing"
			}
			return "status-pending"
		},
		"upper": strings.ToUpper,
		"add":   func(a, b int) int { return a + b },
		"kb": func(n int64) int64 {
			return (n + 1023) / 1024
		},
	}
}
