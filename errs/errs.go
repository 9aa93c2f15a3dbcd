package errs

import (
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
)

// Kinds every failure surfaced to the UI is marked with.
var (
	ErrValidation = cr.New("validation error")
	ErrNotFound   = cr.New("not found")
	ErrNetwork    = cr.New("network error")
	ErrAuth       = cr.New("authentication error")
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindNetwork
	KindAuth
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

func New(msg string) error {
	return cr.New(msg)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return cr.Mark(err, markErr)
}

// Validation reports a missing or malformed field. The message is shown to the user as is.
func Validation(format string, args ...any) error {
	return cr.Mark(cr.Newf(format, args...), ErrValidation)
}

func NotFound(format string, args ...any) error {
	return cr.Mark(cr.Newf(format, args...), ErrNotFound)
}

// Network marks err as a transport or non-2xx failure.
func Network(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Mark(cr.WithMessage(err, msg), ErrNetwork)
}

func Auth(err error, msg string) error {
	if err == nil {
		return cr.Mark(cr.New(msg), ErrAuth)
	}
	return cr.Mark(cr.WithMessage(err, msg), ErrAuth)
}

func Is(err error, reference error) bool {
	return cr.Is(err, reference)
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case cr.Is(err, ErrValidation):
		return KindValidation
	case cr.Is(err, ErrNotFound):
		return KindNotFound
	case cr.Is(err, ErrNetwork):
		return KindNetwork
	case cr.Is(err, ErrAuth):
		return KindAuth
	default:
		return KindUnknown
	}
}

// UserMessage returns the text shown in the UI for err, without stack or wrapping noise
// for network failures.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case KindNetwork:
		var hint interface{ UserMessage() string }
		if cr.As(err, &hint) {
			if msg := strings.TrimSpace(hint.UserMessage()); msg != "" {
				return msg
			}
		}
		return "Network error occurred. Please try again later."
	default:
		return err.Error()
	}
}

func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	s := fmt.Sprintf("%+v", err)
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}
