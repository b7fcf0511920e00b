package processor

import "errors"

var (
	// ErrDecode — тело сообщения не является валидным CheckRequest.
	ErrDecode = errors.New("decode check request")

	// ErrEncode — не удалось сериализовать CheckResponse.
	ErrEncode = errors.New("encode check response")
)
