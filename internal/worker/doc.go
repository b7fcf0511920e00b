// Package worker связывает очередь RabbitMQ с обработчиком batch.
//
// # Обзор
//
// Worker — stateless компонент, который:
//
//   - Получает запросы на проверку из очереди (prefetch 1: одно сообщение в работе)
//   - Передаёт тело и заголовки в processor.Processor
//   - Публикует результат в headers exchange с заголовками event, trace-id, date
//   - Подтверждает сообщение только после подтверждения публикации брокером
//
// # Обработка сообщения
//
//  1. Получение сообщения из очереди
//  2. Process: декодирование, проверки, агрегация
//  3. Publish результата (publisher confirms)
//  4. Ack
//
// Ошибка декодирования — nack без requeue (DLQ). Ошибка публикации — nack с
// requeue: сообщение будет доставлено повторно.
//
// # Остановка
//
// Потеря соединения с брокером фатальна. Worker сообщает о ней через Err(),
// вызывающий код выполняет Stop(): потребление прекращается, сообщение в
// работе дообрабатывается, после чего процесс завершается с ненулевым кодом.
// Неподтверждённое сообщение брокер вернёт в очередь.
//
//	w := worker.New(worker.Config{
//	    Conn:      mqConn,
//	    Queue:     "hal-health-check",
//	    Processor: proc,
//	    Publisher: publisher,
//	    Logger:    logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
package worker
