package config

// Default values.
const (
	DefaultProject         = "searchstack"
	DefaultStack           = "dev"
	DefaultRegion          = "us-east-1"
	DefaultNetworkCIDR     = "10.0.0.0/16"
	DefaultTransitionToIA  = "AFTER_30_DAYS"
	DefaultPosixID         = 1000
	DefaultListenerPort    = 80
	DefaultCPU             = 256
	DefaultMemory          = 512
	DefaultDesiredCount    = 1
	DefaultStateBackend    = BackendFile
	DefaultStatePath       = ".searchstack"
	DefaultBoltPath        = ".searchstack/state.db"
	DefaultStatePrefix     = "searchstack/"
	defaultZoneCount       = 2
	subnetBits             = 8
	maxAvailabilityZones   = 6
	minNetworkPrefixLength = 16
	maxNetworkPrefixLength = 20
)

// State backends.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
	BackendS3   = "s3"
)

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Project == "" {
		c.Project = DefaultProject
	}
	if c.Stack == "" {
		c.Stack = DefaultStack
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}

	if c.Network.CIDR == "" {
		c.Network.CIDR = DefaultNetworkCIDR
	}
	if len(c.Network.AvailabilityZones) == 0 {
		for i := range defaultZoneCount {
			c.Network.AvailabilityZones = append(c.Network.AvailabilityZones, c.Region+string(rune('a'+i)))
		}
	}

	if c.Storage.TransitionToIA == "" {
		c.Storage.TransitionToIA = DefaultTransitionToIA
	}
	if c.Storage.PosixUID == 0 {
		c.Storage.PosixUID = DefaultPosixID
	}
	if c.Storage.PosixGID == 0 {
		c.Storage.PosixGID = DefaultPosixID
	}

	if c.LoadBalancer.ListenerPort == 0 {
		c.LoadBalancer.ListenerPort = DefaultListenerPort
	}
	if c.LoadBalancer.HealthCheckPath == "" {
		c.LoadBalancer.HealthCheckPath = LivenessPath
	}

	if c.Workload.CPU == 0 {
		c.Workload.CPU = DefaultCPU
	}
	if c.Workload.Memory == 0 {
		c.Workload.Memory = DefaultMemory
	}
	if c.Workload.ContainerPort == 0 {
		c.Workload.ContainerPort = c.LoadBalancer.ListenerPort
	}
	if c.Workload.DesiredCount == 0 {
		c.Workload.DesiredCount = DefaultDesiredCount
	}

	if c.State.Backend == "" {
		c.State.Backend = DefaultStateBackend
	}
	if c.State.Path == "" {
		switch c.State.Backend {
		case BackendBolt:
			c.State.Path = DefaultBoltPath
		case BackendFile:
			c.State.Path = DefaultStatePath
		}
	}
	if c.State.Backend == BackendS3 && c.State.Prefix == "" {
		c.State.Prefix = DefaultStatePrefix
	}
}
