package logger

import "log/slog"

// Error records err under "error". A nil error yields an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func UserID(id string) slog.Attr {
	return slog.String("user_id", id)
}

func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

// Billing attributes.

func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

func CustomerID(id string) slog.Attr {
	return slog.String("customer_id", id)
}

func SubscriptionID(id string) slog.Attr {
	return slog.String("subscription_id", id)
}

func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event names an application-level occurrence, e.g. "account_deleted".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
