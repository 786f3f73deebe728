package system

type MonitoringConfig struct {
	// ListenAddress of the Prometheus exporter. Empty disables it.
	ListenAddress string `json:"listen_address,omitempty" yaml:"listen_address,omitempty"`
}

type OpDBConfig struct {
	// Path of the sqlite database. Empty disables warm boot.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}
