package opdb

import "context"

// Store persists operational records that must survive a restart of the
// daemon while the dataplane keeps running.
type Store interface {
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Load(ctx context.Context, namespace string, fn LoadFunc) error
	Clear(ctx context.Context, namespace string) error
	Close() error
}

type LoadFunc func(key string, value []byte) error

const (
	NamespaceRouterInterfaces = "router_interfaces"
)
