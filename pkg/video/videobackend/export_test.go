package videobackend

var (
	NetworkHost   = networkHost
	ResolveDevice = resolveDevice
)
