// log передаёт request-scoped логгер через контекст запроса.
//
// Логгер кладёт HTTP-мидлвар Logging (уже обогащённый request_id),
// сервисный слой достаёт его через From(ctx) и дописывает свои поля —
// так записи одного запроса связываются между слоями без прокидывания
// логгера через сигнатуры.
package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// Into кладёт логгер в контекст.
func Into(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From достаёт логгер из контекста (или возвращает slog.Default()).
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}

	return slog.Default()
}
