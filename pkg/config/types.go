package config

import (
	"github.com/veesix-networks/osvswitch/pkg/config/interfaces"
	"github.com/veesix-networks/osvswitch/pkg/config/system"
)

type Config struct {
	Logging    system.LoggingConfig          `json:"logging,omitempty" yaml:"logging,omitempty"`
	Dataplane  system.DataplaneConfig        `json:"dataplane,omitempty" yaml:"dataplane,omitempty"`
	Switch     system.SwitchConfig           `json:"switch,omitempty" yaml:"switch,omitempty"`
	Interfaces []*interfaces.InterfaceConfig `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	DSF        system.DSFConfig              `json:"dsf,omitempty" yaml:"dsf,omitempty"`
	Monitoring system.MonitoringConfig       `json:"monitoring,omitempty" yaml:"monitoring,omitempty"`
	OpDB       system.OpDBConfig             `json:"opdb,omitempty" yaml:"opdb,omitempty"`
}
