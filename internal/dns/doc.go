// Package dns сверяет A-запись домена с публичным IPv4 воркера.
//
// Reconciler выполняет шаги:
//  1. Резолвит IPv4 хоста. Нет адресов — стоп.
//  2. Получает собственный публичный IPv4 (PublicIPFetcher). Недоступен — стоп.
//  3. Повторно резолвит текущий IPv4 хоста.
//  4. Если текущий IP ≠ публичный — UPSERT A-записи "<host>." с TTL 300.
//
// Все ошибки только логируются: сверка DNS не влияет на результат проверки.
//
// Реализации внешних зависимостей:
//   - NetResolver — системный резолвер
//   - HTTPPublicIP — "echo my IP" HTTP endpoint
//   - Route53Upserter — AWS Route 53
package dns
