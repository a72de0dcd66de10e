package classifier

import (
	"strings"

	"github.com/BearBump/ShipSight/internal/models"
)

// Ключевые слова остановки/ограничения хода. Категорию всегда решает это
// правило по входному тексту: внешняя модель — только парафразер.
var stallKeywords = []string{
	"anchor",
	"moored",
	"aground",
	"restricted",
	"not under command",
	"constrained",
	"search and rescue",
}

// CategoryFromText — детерминированное правило категории по тексту статуса.
func CategoryFromText(statusText string) string {
	low := strings.ToLower(statusText)
	for _, kw := range stallKeywords {
		if strings.Contains(low, kw) {
			return models.StatusDelayed
		}
	}
	return models.StatusOnTime
}

// Fallback — эвристика на случай недоступности внешнего классификатора.
// Тотальна: любой текст получает категорию из {On Time, Delayed, Delivered}.
func Fallback(statusText string) Result {
	low := strings.ToLower(statusText)

	switch {
	case strings.Contains(low, "delivered") || strings.Contains(low, "pod"):
		return Result{Status: models.StatusDelivered}
	case containsAny(low, "port", "berth", "queue", "anchorage", "congestion"):
		return Result{Status: models.StatusDelayed, Reason: models.ReasonPortCongestion}
	case strings.Contains(low, "customs"):
		return Result{Status: models.StatusDelayed, Reason: models.ReasonCustomsIssue}
	case containsAny(low, "storm", "typhoon", "hurricane", "weather", "cyclone"):
		return Result{Status: models.StatusDelayed, Reason: models.ReasonWeatherDelay}
	case strings.Contains(low, "delay"):
		return Result{Status: models.StatusDelayed}
	default:
		return Result{Status: models.StatusOnTime}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
