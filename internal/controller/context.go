package controller

import "context"

type contextKey int

const (
	connectionIDCtxKey contextKey = iota
)

func (c controller) getConnectionIDFromCtx(ctx context.Context) string {
	connectionID, ok := ctx.Value(connectionIDCtxKey).(string)
	if !ok {
		return ""
	}

	return connectionID
}
