package utils

import (
	"context"

	"github.com/google/uuid"
	"github.com/mmdatafocus/ledger_backend/appctx"
)

var (
	ContextKeyUserId        = appctx.ContextKeyUserId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyLocale        = appctx.ContextKeyLocale
)

func GetUserIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyUserId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetLocaleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyLocale)
}

func SetUserIdInContext(ctx context.Context, userId int) context.Context {
	return appctx.Set(ctx, ContextKeyUserId, userId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetLocaleInContext(ctx context.Context, locale string) context.Context {
	return appctx.Set(ctx, ContextKeyLocale, locale)
}

// EnsureCorrelationId returns ctx unchanged when it already carries an id.
func EnsureCorrelationId(ctx context.Context) (context.Context, string) {
	if id, ok := GetCorrelationIdFromContext(ctx); ok && id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return SetCorrelationIdInContext(ctx, id), id
}
