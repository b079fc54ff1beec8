package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxStationID ctxKey = iota
	ctxAccessPointID
	ctxRole
)

func WithIdentity(ctx context.Context, stationID, accessPointID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxStationID, stationID)
	ctx = context.WithValue(ctx, ctxAccessPointID, accessPointID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func StationID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxStationID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("station_id not in context")
}

// AccessPointID may legitimately be empty for app stations, which are not
// bound to a single door.
func AccessPointID(ctx context.Context) string {
	if s, ok := ctx.Value(ctxAccessPointID).(string); ok {
		return s
	}
	return ""
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}
