// Package cli реализует вспомогательные команды health-check-worker.
//
// Команда check публикует запрос на проверку во входящую очередь и
// ждёт ответ с тем же trace-id во временной очереди (--wait=false — не ждать):
//
//	health-check-worker check http://example.com http://example.org
//	health-check-worker check --domain-check --zone Z123 http://app.example.com
//	health-check-worker check --json http://example.com
//	health-check-worker check --wait=false http://example.com
//
// Используется для ручной проверки развёрнутого воркера.
package cli
