// Package hwstore is the hardware object store for router interfaces. Objects
// are shared and reference counted: every router interface attribute set that
// resolves to the same forwarding context (host key) maps to one dataplane
// object.
package hwstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"

	"github.com/veesix-networks/osvswitch/pkg/logger"
	"github.com/veesix-networks/osvswitch/pkg/opdb"
	"github.com/veesix-networks/osvswitch/pkg/southbound"
	"github.com/veesix-networks/osvswitch/pkg/state"
)

var ErrHostKeyMismatch = errors.New("attributes resolve to a different host key")

var _ opdb.Provider = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	backend  southbound.RouterInterfaces
	db       opdb.Store
	objects  map[string]*Object
	restored map[string]record
	logger   *slog.Logger
}

type Option func(*Store)

// WithOpDB checkpoints every object into db so a restarted daemon can adopt
// the dataplane objects it left behind.
func WithOpDB(db opdb.Store) Option {
	return func(s *Store) {
		s.db = db
	}
}

func New(backend southbound.RouterInterfaces, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		objects:  make(map[string]*Object),
		restored: make(map[string]record),
		logger:   logger.Get(logger.HwStore),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HostKey identifies the forwarding context of a router interface. The router
// id is an attribute of the object, not part of its identity.
func HostKey(attrs southbound.RouterInterfaceAttributes) string {
	switch attrs.Type {
	case state.InterfaceTypeVLAN:
		return fmt.Sprintf("vlan:%d", attrs.VlanID)
	case state.InterfaceTypePort:
		return fmt.Sprintf("port:%d", attrs.PortID)
	case state.InterfaceTypeSystemPort:
		return fmt.Sprintf("sysport:%d", attrs.SystemPortID)
	default:
		return fmt.Sprintf("unknown:%d", uint8(attrs.Type))
	}
}

// Set returns the object for the host key of attrs with one more reference.
// An existing object is updated in place when its attributes differ; a
// missing one is adopted from the warm boot records or created.
func (s *Store) Set(attrs southbound.RouterInterfaceAttributes) (*Object, error) {
	hk := HostKey(attrs)

	s.mu.Lock()
	defer s.mu.Unlock()

	if obj, ok := s.objects[hk]; ok {
		if err := obj.update(attrs); err != nil {
			return nil, err
		}
		obj.refs++
		return obj, nil
	}

	if rec, ok := s.restored[hk]; ok {
		prev := rec.attributes()
		if !prev.Equal(attrs) {
			if err := s.backend.UpdateRouterInterface(rec.AdapterKey, prev, attrs); err != nil {
				return nil, fmt.Errorf("adopt router interface %s: %w", hk, err)
			}
		}
		delete(s.restored, hk)

		obj := s.newObject(hk, rec.AdapterKey, attrs)
		s.checkpoint(obj)
		s.logger.Info("Adopted router interface from warm boot", "host_key", hk, "adapter_key", rec.AdapterKey)
		return obj, nil
	}

	key, err := s.backend.CreateRouterInterface(attrs)
	if err != nil {
		return nil, fmt.Errorf("create router interface %s: %w", hk, err)
	}

	obj := s.newObject(hk, key, attrs)
	s.checkpoint(obj)
	s.logger.Debug("Created router interface object", "host_key", hk, "adapter_key", key)
	return obj, nil
}

func (s *Store) newObject(hk string, key southbound.AdapterKey, attrs southbound.RouterInterfaceAttributes) *Object {
	obj := &Object{
		store:   s,
		hostKey: hk,
		key:     key,
		attrs:   cloneAttributes(attrs),
		refs:    1,
	}
	s.objects[hk] = obj
	return obj
}

// Get returns the live object for a host key without taking a reference.
func (s *Store) Get(hostKey string) (*Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[hostKey]
	return obj, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// HostKeys returns the host keys of the live objects in sorted order.
func (s *Store) HostKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) Namespaces() []string {
	return []string{opdb.NamespaceRouterInterfaces}
}

// Restore loads the objects checkpointed by a previous run. They stay
// unclaimed until Set adopts them or ReleaseUnclaimed deletes them.
func (s *Store) Restore(ctx context.Context, db opdb.Store) error {
	var (
		count int
		bad   []string
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	err := db.Load(ctx, opdb.NamespaceRouterInterfaces, func(key string, value []byte) error {
		var rec record
		if err := json.Unmarshal(value, &rec); err != nil {
			s.logger.Warn("Failed to unmarshal router interface from opdb", "key", key, "error", err)
			bad = append(bad, key)
			return nil
		}
		if _, live := s.objects[key]; live {
			return nil
		}
		s.restored[key] = rec
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("load router interfaces: %w", err)
	}

	for _, key := range bad {
		if err := db.Delete(ctx, opdb.NamespaceRouterInterfaces, key); err != nil {
			s.logger.Warn("Failed to delete corrupt router interface from opdb", "key", key, "error", err)
		}
	}

	s.logger.Info("Restored router interfaces from opdb", "count", count)
	return nil
}

// ReleaseUnclaimed deletes the restored objects that nothing adopted.
func (s *Store) ReleaseUnclaimed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.restored))
	for hk := range s.restored {
		keys = append(keys, hk)
	}
	sort.Strings(keys)

	var errs []error
	for _, hk := range keys {
		rec := s.restored[hk]
		if err := s.backend.DeleteRouterInterface(rec.AdapterKey, rec.attributes()); err != nil {
			errs = append(errs, fmt.Errorf("release unclaimed router interface %s: %w", hk, err))
			continue
		}
		delete(s.restored, hk)
		s.deleteCheckpoint(ctx, hk)
		s.logger.Info("Released unclaimed router interface", "host_key", hk, "adapter_key", rec.AdapterKey)
	}
	return errors.Join(errs...)
}

// Unclaimed returns the number of restored objects not yet adopted.
func (s *Store) Unclaimed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.restored)
}

func (s *Store) checkpoint(obj *Object) {
	if s.db == nil {
		return
	}

	data, err := json.Marshal(newRecord(obj.key, obj.attrs))
	if err != nil {
		s.logger.Warn("Failed to marshal router interface for checkpoint", "host_key", obj.hostKey, "error", err)
		return
	}

	if err := s.db.Put(context.Background(), opdb.NamespaceRouterInterfaces, obj.hostKey, data); err != nil {
		s.logger.Warn("Failed to checkpoint router interface", "host_key", obj.hostKey, "error", err)
	}
}

func (s *Store) deleteCheckpoint(ctx context.Context, hostKey string) {
	if s.db == nil {
		return
	}

	if err := s.db.Delete(ctx, opdb.NamespaceRouterInterfaces, hostKey); err != nil {
		s.logger.Warn("Failed to delete router interface checkpoint", "host_key", hostKey, "error", err)
	}
}

func cloneAttributes(attrs southbound.RouterInterfaceAttributes) southbound.RouterInterfaceAttributes {
	if attrs.MAC != nil {
		attrs.MAC = append(net.HardwareAddr(nil), attrs.MAC...)
	}
	return attrs
}
