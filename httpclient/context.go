/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "context"

type ctxKey int

const ctxKeyRequestType ctxKey = iota

// NewContextWithRequestType creates a new context with the request type
// (an upstream operation name like "market_price") used as a metrics and log label.
func NewContextWithRequestType(ctx context.Context, requestType string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestType, requestType)
}

// GetRequestTypeFromContext extracts the request type from the context.
func GetRequestTypeFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyRequestType).(string); ok {
		return s
	}
	return ""
}

func requestTypeOrDefault(ctx context.Context, def string) string {
	if reqType := GetRequestTypeFromContext(ctx); reqType != "" {
		return reqType
	}
	return def
}
