package mq

import "errors"

var (
	// ErrConnectionLost — соединение или канал с брокером закрыты.
	ErrConnectionLost = errors.New("amqp connection lost")

	// ErrNoChannel — канал ещё не открыт или уже закрыт.
	ErrNoChannel = errors.New("no channel available")

	// ErrReject — handler просит отклонить сообщение без возврата в очередь
	// (сообщение уходит в dead-letter exchange, если он настроен).
	ErrReject = errors.New("message rejected")

	// ErrPublishNotConfirmed — брокер не подтвердил публикацию.
	ErrPublishNotConfirmed = errors.New("publish not confirmed")
)
