package logger

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var empty slog.Attr

// Group nests attrs under name.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error logs err under "error". Nil errors produce an empty attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return empty
	}
	return slog.Any("error", err)
}

// IdentityID logs the identity under "identity_id". uuid.Nil is omitted.
func IdentityID(id uuid.UUID) slog.Attr {
	if id == uuid.Nil {
		return empty
	}
	return slog.String("identity_id", id.String())
}

// OrganizationID logs the organization under "organization_id". uuid.Nil is omitted.
func OrganizationID(id uuid.UUID) slog.Attr {
	if id == uuid.Nil {
		return empty
	}
	return slog.String("organization_id", id.String())
}

func Role(role string) slog.Attr {
	if role == "" {
		return empty
	}
	return slog.String("role", role)
}

func SessionStatus(status string) slog.Attr {
	return slog.String("session_status", status)
}

// Transition logs a state change as transition.from / transition.to.
func Transition(from, to string) slog.Attr {
	return Group("transition", slog.String("from", from), slog.String("to", to))
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}
