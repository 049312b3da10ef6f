package services

import (
	"log/slog"
	"strings"
)

// logFailure logs expected rejections at info level and anything else as an error.
func logFailure(log *slog.Logger, op string, err error, attrs ...any) {
	attrs = append(attrs, "op", op, "err", err)
	if KindOf(err) == KindInternal {
		log.Error("operation failed", attrs...)
		return
	}
	log.Info("request rejected", attrs...)
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// setString records a column update when the input field was supplied.
func setString(fields map[string]any, column string, value *string) {
	if value != nil {
		fields[column] = strings.TrimSpace(*value)
	}
}
