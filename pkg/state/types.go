package state

import (
	"fmt"
	"strings"
)

type InterfaceID uint32
type RouterID uint32
type VlanID uint16
type PortID uint32
type SystemPortID uint32
type SwitchID uint32

type InterfaceType uint8

const (
	InterfaceTypeVLAN InterfaceType = iota + 1
	InterfaceTypePort
	InterfaceTypeSystemPort
)

func (t InterfaceType) String() string {
	switch t {
	case InterfaceTypeVLAN:
		return "vlan"
	case InterfaceTypePort:
		return "port"
	case InterfaceTypeSystemPort:
		return "system-port"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

func ParseInterfaceType(s string) (InterfaceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vlan":
		return InterfaceTypeVLAN, nil
	case "port":
		return InterfaceTypePort, nil
	case "system-port", "system_port", "sysport":
		return InterfaceTypeSystemPort, nil
	default:
		return 0, fmt.Errorf("unknown interface type %q", s)
	}
}

type Scope uint8

const (
	ScopeLocal Scope = iota
	ScopeGlobal
)

func (s Scope) String() string {
	if s == ScopeGlobal {
		return "global"
	}
	return "local"
}
