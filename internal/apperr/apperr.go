package apperr

import (
	"errors"
	"fmt"
)

// Hata taksonomisi: her servis hatası bu beş türden birine düşer ve merkezi
// fiber ErrorHandler tarafından HTTP koduna çevrilir (bkz. cmd/server/main.go).
type Kind int

const (
	KindValidation   Kind = iota + 1 // 400: bozuk girdi
	KindNotFound                     // 404: çözülemeyen tanımlayıcı(lar)
	KindConflict                     // 409: yarış, yetersiz stok/bakiye, aktif sayım
	KindUnauthorized                 // 401: actor id yok veya geçersiz
	KindIO                           // 500: store'a ulaşılamadı
)

type Error struct {
	Kind    Kind
	Message string
	// Missing: NotFound için çözülemeyen TÜM tanımlayıcılar, sadece ilki değil.
	Missing []string
	// Retryable: Conflict yarış kaynaklıysa true; istemci tekrar deneyebilir.
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(message string, missing ...string) *Error {
	return &Error{Kind: KindNotFound, Message: message, Missing: missing}
}

func Conflict(message string, retryable bool) *Error {
	return &Error{Kind: KindConflict, Message: message, Retryable: retryable}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// IO: Store hatalarını sarar. Mesaj kullanıcıya genel haliyle döner, asıl
// hata correlation id ile loglanır.
func IO(err error, message string) *Error {
	return &Error{Kind: KindIO, Message: message, Err: err}
}

// As: err zincirinde *Error arar.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	if e, ok := As(err); ok {
		return e.Kind == kind
	}
	return false
}

// HTTPStatus: Taksonomiden HTTP koduna sabit eşleme.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return 400
	case KindUnauthorized:
		return 401
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	default:
		return 500
	}
}
