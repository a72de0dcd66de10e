package classifier

import (
	"context"
	"log/slog"
)

// Outcome — исход обращения к классификатору. Retry и Error никогда не
// сохраняются как категория: запись остаётся неклассифицированной.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeRetry
	OutcomeError
)

type Result struct {
	Status string
	Reason string // пустая строка — причины нет (в БД уходит NULL)
}

// Paraphraser — внешний текстовый сервис. Генерирует человекочитаемый
// пересказ статуса; категорию он не решает.
type Paraphraser interface {
	Paraphrase(ctx context.Context, statusText string) (string, Outcome, error)
}

type Classifier struct {
	p        Paraphraser // nil — внешний сервис не сконфигурирован
	fallback bool
}

func New(p Paraphraser, fallbackEnabled bool) *Classifier {
	return &Classifier{p: p, fallback: fallbackEnabled}
}

func (c *Classifier) HasExternal() bool { return c.p != nil }

func (c *Classifier) FallbackEnabled() bool { return c.fallback }

// Classify отображает текст статуса в (категория, причина/пересказ).
// Успешный внешний вызов: категория — по keyword-правилу от ВХОДНОГО текста,
// пересказ модели идёт в reason. Ошибка внешнего вызова при включённом
// fallback — чистая эвристика. Retry (модель грузится) и ошибка без
// fallback — запись остаётся без классификации до следующего цикла.
func (c *Classifier) Classify(ctx context.Context, statusText string) (Result, Outcome) {
	if c.p == nil {
		if c.fallback {
			return Fallback(statusText), OutcomeOK
		}
		return Result{}, OutcomeError
	}

	text, outcome, err := c.p.Paraphrase(ctx, statusText)
	switch outcome {
	case OutcomeOK:
		return Result{Status: CategoryFromText(statusText), Reason: text}, OutcomeOK
	case OutcomeRetry:
		slog.Info("classifier model is loading, will retry next cycle")
		return Result{}, OutcomeRetry
	default:
		if err != nil {
			slog.Warn("external classifier failed", "error", err.Error())
		}
		if c.fallback {
			return Fallback(statusText), OutcomeOK
		}
		return Result{}, OutcomeError
	}
}
