package hwstore

import (
	"context"
	"fmt"

	"github.com/veesix-networks/osvswitch/pkg/southbound"
)

// Object is a router interface programmed in the dataplane. It is shared by
// every holder of a reference obtained from Store.Set.
type Object struct {
	store   *Store
	hostKey string
	key     southbound.AdapterKey
	attrs   southbound.RouterInterfaceAttributes
	refs    int
}

func (o *Object) HostKey() string {
	return o.hostKey
}

func (o *Object) AdapterKey() southbound.AdapterKey {
	return o.key
}

func (o *Object) Attributes() southbound.RouterInterfaceAttributes {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	return cloneAttributes(o.attrs)
}

func (o *Object) Refs() int {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()
	return o.refs
}

// SetAttributes updates the object in place. The adapter key is preserved;
// attributes that move the object to another host key are rejected.
func (o *Object) SetAttributes(attrs southbound.RouterInterfaceAttributes) error {
	if hk := HostKey(attrs); hk != o.hostKey {
		return fmt.Errorf("%w: %s -> %s", ErrHostKeyMismatch, o.hostKey, hk)
	}

	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	return o.update(attrs)
}

// update must be called with the store lock held.
func (o *Object) update(attrs southbound.RouterInterfaceAttributes) error {
	if o.attrs.Equal(attrs) {
		return nil
	}
	if err := o.store.backend.UpdateRouterInterface(o.key, o.attrs, attrs); err != nil {
		return fmt.Errorf("update router interface %s: %w", o.hostKey, err)
	}
	o.attrs = cloneAttributes(attrs)
	o.store.checkpoint(o)
	return nil
}

// Release drops one reference. The last release deletes the object from the
// dataplane; if that fails the reference is kept and the error returned.
func (o *Object) Release() error {
	s := o.store

	s.mu.Lock()
	defer s.mu.Unlock()

	if o.refs <= 0 {
		return fmt.Errorf("release router interface %s: no references held", o.hostKey)
	}
	if o.refs > 1 {
		o.refs--
		return nil
	}

	if err := s.backend.DeleteRouterInterface(o.key, o.attrs); err != nil {
		return fmt.Errorf("delete router interface %s: %w", o.hostKey, err)
	}
	o.refs = 0
	delete(s.objects, o.hostKey)
	s.deleteCheckpoint(context.Background(), o.hostKey)
	s.logger.Debug("Deleted router interface object", "host_key", o.hostKey, "adapter_key", o.key)
	return nil
}
