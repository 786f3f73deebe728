package logger

const (
	Main       = "main"
	RIF        = "rifmgr"
	Routes     = "routemgr"
	HwStore    = "hwstore"
	Southbound = "southbound"
	Kernel     = "kernel"
	StateDelta = "statedelta"
	DSF        = "dsf"
	Events     = "events"
	Exporter   = "exporter"
	Config     = "config"
	OpDB       = "opdb"
)
