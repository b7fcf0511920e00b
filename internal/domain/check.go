package domain

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Статусы результата проверки.
const (
	// StatusOK — текстовый HTTP-код, при котором проверка считается успешной.
	StatusOK = "200"

	// StatusUnreachable — sentinel для случаев, когда HTTP-ответа нет вообще
	// (таймаут, DNS, connection refused) или элемент запроса невалиден.
	// "000" не является допустимым HTTP-кодом, поэтому не пересекается с ответами сервера.
	StatusUnreachable = "000"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// CheckRequest — входящее сообщение: упорядоченный список URL для проверки.
type CheckRequest struct {
	URLs []URLSpec `json:"urls"`
}

// URLSpec — один URL из запроса.
//
// Если DomainCheck=true, HostedZoneID обязателен:
// без него DNS-запись обновить некуда.
type URLSpec struct {
	URL          string  `json:"url" validate:"required,url"`
	DomainCheck  bool    `json:"domainCheck"`
	HostedZoneID *string `json:"hostedZoneId,omitempty"`
}

// Validate проверяет элемент запроса.
func (s URLSpec) Validate() error {
	if err := validatorInstance().Struct(s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidURL, s.URL)
	}

	if _, err := url.Parse(s.URL); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if s.DomainCheck && s.ZoneID() == "" {
		return fmt.Errorf("%w: %s", ErrMissingHostedZone, s.URL)
	}

	return nil
}

// ZoneID возвращает hosted zone или пустую строку.
func (s URLSpec) ZoneID() string {
	if s.HostedZoneID == nil {
		return ""
	}
	return strings.TrimSpace(*s.HostedZoneID)
}

// CheckResult — результат проверки одного URL.
type CheckResult struct {
	URL string `json:"url"`

	// Status — HTTP-код ответа в десятичном виде, либо StatusUnreachable.
	Status string `json:"status"`

	// Timestamp — момент завершения проверки (RFC 3339, UTC).
	Timestamp string `json:"date"`

	// Error — причина, если ответа не было или элемент невалиден.
	Error string `json:"error,omitempty"`
}

// OK возвращает true, если статус равен "200".
func (r CheckResult) OK() bool {
	return r.Status == StatusOK
}

// NewFailedResult создаёт результат без HTTP-ответа.
func NewFailedResult(rawURL string, at time.Time, err error) CheckResult {
	res := CheckResult{
		URL:       rawURL,
		Status:    StatusUnreachable,
		Timestamp: FormatInstant(at),
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// CheckResponse — агрегированный ответ по всему batch.
type CheckResponse struct {
	Results []CheckResult `json:"responses"`
}

// Succeeded возвращает true, если все результаты имеют статус "200".
// Пустой ответ успешным не считается.
func (r CheckResponse) Succeeded() bool {
	if len(r.Results) == 0 {
		return false
	}
	for _, res := range r.Results {
		if !res.OK() {
			return false
		}
	}
	return true
}

// FormatInstant форматирует момент времени как ISO-8601 instant в UTC.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
