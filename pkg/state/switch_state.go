package state

import (
	"fmt"
	"sort"
)

// SystemPort is a port of a (possibly remote) switch in the fabric.
type SystemPort struct {
	ID            SystemPortID
	Name          string
	SwitchID      SwitchID
	CoreIndex     int
	CorePortIndex int
	SpeedMbps     int64
	NumVoqs       int
	Scope         Scope
}

// InterfaceMap holds interfaces keyed by id. The zero value is not usable,
// use NewInterfaceMap.
type InterfaceMap struct {
	byID map[InterfaceID]*Interface
}

func NewInterfaceMap(ifaces ...*Interface) *InterfaceMap {
	m := &InterfaceMap{byID: make(map[InterfaceID]*Interface, len(ifaces))}
	for _, iface := range ifaces {
		m.byID[iface.ID] = iface
	}
	return m
}

func (m *InterfaceMap) Add(iface *Interface) error {
	if _, ok := m.byID[iface.ID]; ok {
		return fmt.Errorf("interface %d already exists", iface.ID)
	}
	m.byID[iface.ID] = iface
	return nil
}

func (m *InterfaceMap) Update(iface *Interface) error {
	if _, ok := m.byID[iface.ID]; !ok {
		return fmt.Errorf("interface %d not found", iface.ID)
	}
	m.byID[iface.ID] = iface
	return nil
}

func (m *InterfaceMap) Remove(id InterfaceID) bool {
	if _, ok := m.byID[id]; !ok {
		return false
	}
	delete(m.byID, id)
	return true
}

func (m *InterfaceMap) Get(id InterfaceID) (*Interface, bool) {
	if m == nil {
		return nil, false
	}
	iface, ok := m.byID[id]
	return iface, ok
}

func (m *InterfaceMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.byID)
}

// IDs returns the interface ids in ascending order.
func (m *InterfaceMap) IDs() []InterfaceID {
	if m == nil {
		return nil
	}
	ids := make([]InterfaceID, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone deep-copies the map and its interfaces.
func (m *InterfaceMap) Clone() *InterfaceMap {
	out := NewInterfaceMap()
	if m == nil {
		return out
	}
	for id, iface := range m.byID {
		out.byID[id] = iface.Clone()
	}
	return out
}

// SwitchState is the slice of switch state this agent reconciles: interfaces
// owned by this switch and interfaces mirrored from remote fabric switches.
type SwitchState struct {
	Interfaces        *InterfaceMap
	RemoteInterfaces  *InterfaceMap
	RemoteSystemPorts map[SystemPortID]*SystemPort
}

func NewSwitchState() *SwitchState {
	return &SwitchState{
		Interfaces:        NewInterfaceMap(),
		RemoteInterfaces:  NewInterfaceMap(),
		RemoteSystemPorts: make(map[SystemPortID]*SystemPort),
	}
}

func (s *SwitchState) Clone() *SwitchState {
	if s == nil {
		return NewSwitchState()
	}
	out := &SwitchState{
		Interfaces:        s.Interfaces.Clone(),
		RemoteInterfaces:  s.RemoteInterfaces.Clone(),
		RemoteSystemPorts: make(map[SystemPortID]*SystemPort, len(s.RemoteSystemPorts)),
	}
	for id, p := range s.RemoteSystemPorts {
		cp := *p
		out.RemoteSystemPorts[id] = &cp
	}
	return out
}
