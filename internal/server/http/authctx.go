package httpserver

import (
	"context"

	"github.com/and161185/slushbook/internal/convert"
	"github.com/and161185/slushbook/internal/model"
)

type ctxKey string

const (
	callerKey ctxKey = "sb.caller"
	localeKey ctxKey = "sb.locale"
)

// WithCaller stores the request caller in context.
func WithCaller(ctx context.Context, c model.Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFromCtx fetches the request caller. Requests without one are anonymous.
func CallerFromCtx(ctx context.Context) model.Caller {
	c, ok := ctx.Value(callerKey).(model.Caller)
	if !ok {
		return model.Anonymous("")
	}
	return c
}

// WithLocale stores the resolved locale in context.
func WithLocale(ctx context.Context, loc convert.Locale) context.Context {
	return context.WithValue(ctx, localeKey, loc)
}

// LocaleFromCtx fetches the resolved locale, defaulting to Danish.
func LocaleFromCtx(ctx context.Context) convert.Locale {
	loc, ok := ctx.Value(localeKey).(convert.Locale)
	if !ok {
		return convert.NewLocale("DK", model.LangDA)
	}
	return loc
}
