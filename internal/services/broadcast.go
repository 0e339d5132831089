package services

import "context"

// Broadcaster pushes realtime events to a tenant's dashboard clients
type Broadcaster interface {
	Broadcast(ctx context.Context, tenantID, eventType string, data interface{})
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(context.Context, string, string, interface{}) {}

func orNop(b Broadcaster) Broadcaster {
	if b == nil {
		return nopBroadcaster{}
	}
	return b
}
