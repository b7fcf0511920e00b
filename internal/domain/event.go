package domain

import "time"

// EventKind — итоговая классификация batch.
type EventKind string

const (
	EventKindSuccess EventKind = "success"
	EventKindError   EventKind = "error"
)

// Имена заголовков исходящего (и входящего) сообщения.
const (
	HeaderEvent   = "event"
	HeaderTraceID = "trace-id"
	HeaderDate    = "date"
)

// EventNames — имена событий, публикуемых в exchange.
type EventNames struct {
	Success string `validate:"required"`
	Error   string `validate:"required"`
}

// DefaultEventNames возвращает имена событий по умолчанию.
func DefaultEventNames() EventNames {
	return EventNames{
		Success: "health-check:success",
		Error:   "health-check:error",
	}
}

// Name возвращает имя события для kind.
func (n EventNames) Name(kind EventKind) string {
	if kind == EventKindSuccess {
		return n.Success
	}
	return n.Error
}

// Envelope — метаданные исходящего сообщения (передаются заголовками, не телом).
type Envelope struct {
	Kind      EventKind
	TraceID   string
	EmittedAt time.Time
}

// Headers строит заголовки сообщения.
func (e Envelope) Headers(names EventNames) map[string]any {
	return map[string]any{
		HeaderEvent:   names.Name(e.Kind),
		HeaderTraceID: e.TraceID,
		HeaderDate:    FormatInstant(e.EmittedAt),
	}
}
