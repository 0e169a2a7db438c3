package keyboard

import (
	"errors"
	"fmt"
)

// CallbackDataLimitBytes is Telegram's limit for inline button payloads.
const CallbackDataLimitBytes = 64

var ErrEmptyCallback = errors.New("callback data is empty")

// EncodeCallback checks that data fits into an inline button payload.
func EncodeCallback(data string) (string, error) {
	if data == "" {
		return "", ErrEmptyCallback
	}
	if len(data) > CallbackDataLimitBytes {
		return "", fmt.Errorf("callback data exceeds %d byte limit: got %d", CallbackDataLimitBytes, len(data))
	}

	return data, nil
}
