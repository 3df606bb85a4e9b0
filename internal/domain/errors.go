package domain

import "errors"

var (
	// ErrNotFound: неизвестное имя capability или id запроса на согласие.
	ErrNotFound = errors.New("not found")

	ErrAlreadyResolved   = errors.New("consent request already resolved")
	ErrInvalidTransition = errors.New("invalid consent status transition")

	ErrDuplicateCapability = errors.New("capability already registered")
	ErrRegistrySealed      = errors.New("capability registry is sealed")

	// ErrClosed возвращается хранилищами, которые уже остановлены.
	ErrClosed = errors.New("store is closed")
)
