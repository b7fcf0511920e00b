// Package processor обрабатывает одно входящее сообщение (batch).
//
// Processor — stateless преобразование (body, headers) → (body, headers):
//
//  1. Декодирует CheckRequest. Ошибка — ErrDecode, сообщение отклоняется.
//  2. Для каждого URL конкурентно: валидация, проверка (probe.Executor),
//     при domainCheck=true — сверка DNS (dns.Reconciler) после проверки.
//  3. Ждёт завершения всех задач и собирает CheckResponse.
//  4. Успех — только если все статусы равны "200".
//  5. Строит Envelope: event, trace-id (из входящих заголовков), date.
//
// # Изоляция ошибок
//
// Каждая задача пишет результат только в свой слот среди результатов, общей
// коллекции с append нет. Невалидный элемент (пустой URL, domainCheck без
// hostedZoneId) не прерывает соседние проверки: он превращается в результат
// со статусом domain.StatusUnreachable и текстом ошибки, batch получает Error.
package processor
