package v1alpha1

const (
	DefaultMeshName  = "demo"
	DefaultGateway   = "gateway"
	DefaultNamespace = "mesh.local"
	DefaultTier      = "colorteller"
	DefaultAppPort   = 8080
	DefaultProtocol  = "http"
	DefaultRouteName = "color-route"

	DefaultHealthCheckPath               = "/ping"
	DefaultHealthCheckIntervalMillis     = 10 * 1000
	DefaultHealthCheckTimeoutMillis      = 5 * 1000
	DefaultHealthCheckHealthyThreshold   = 2
	DefaultHealthCheckUnhealthyThreshold = 2
)

// Default fills every unset optional field with its default value.
func (s *ColorAppSpec) Default() {
	if s.MeshName == "" {
		s.MeshName = DefaultMeshName
	}
	if s.Gateway == "" {
		s.Gateway = DefaultGateway
	}
	if s.Namespace == "" {
		s.Namespace = DefaultNamespace
	}
	if s.Tier == "" {
		s.Tier = DefaultTier
	}
	if s.AppPort == 0 {
		s.AppPort = DefaultAppPort
	}
	if s.Protocol == "" {
		s.Protocol = DefaultProtocol
	}
	if s.RouteName == "" {
		s.RouteName = DefaultRouteName
	}
	if s.RoutePolicy.Mode == "" {
		s.RoutePolicy.Mode = RouteSkipDefault
	}

	hc := &s.HealthCheck
	if hc.Path == "" {
		hc.Path = DefaultHealthCheckPath
	}
	if hc.IntervalMillis == 0 {
		hc.IntervalMillis = DefaultHealthCheckIntervalMillis
	}
	if hc.TimeoutMillis == 0 {
		hc.TimeoutMillis = DefaultHealthCheckTimeoutMillis
	}
	if hc.HealthyThreshold == 0 {
		hc.HealthyThreshold = DefaultHealthCheckHealthyThreshold
	}
	if hc.UnhealthyThreshold == 0 {
		hc.UnhealthyThreshold = DefaultHealthCheckUnhealthyThreshold
	}
}

// DeepCopy returns a copy that shares no slices or maps with s.
func (s ColorAppSpec) DeepCopy() ColorAppSpec {
	out := s
	if s.Backends != nil {
		out.Backends = append([]string(nil), s.Backends...)
	}
	if s.RoutePolicy.Targets != nil {
		out.RoutePolicy.Targets = make(map[string]int32, len(s.RoutePolicy.Targets))
		for k, v := range s.RoutePolicy.Targets {
			out.RoutePolicy.Targets[k] = v
		}
	}
	return out
}
