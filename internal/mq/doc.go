// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с RabbitMQ, отдельные каналы для consume и publish
//   - topology.go   — объявление exchange, очередей, bindings
//   - publisher.go  — публикация результатов (publisher confirms)
//   - consumer.go   — потребление сообщений с prefetch 1
//
// Протокол сообщений:
//   - тело — JSON (CheckRequest на входе, CheckResponse на выходе)
//   - метаданные — заголовки AMQP: event, trace-id, date
//
// Потеря соединения не восстанавливается автоматически: Connection.Lost()
// и ErrConnectionLost сигнализируют супервизору (internal/worker), что нужно
// остановиться. Неподтверждённое сообщение брокер вернёт в очередь.
package mq
