package meshobjects

// The spec types below mirror the shape of App Mesh resource specs so the
// rendered declarations can be handed to an engine without translation.

type MeshSpec struct {
	EgressFilter string `json:"egressFilter,omitempty"`
}

type PortMapping struct {
	Port     int32  `json:"port"`
	Protocol string `json:"protocol"`
}

type HealthCheck struct {
	HealthyThreshold   int32  `json:"healthyThreshold"`
	IntervalMillis     int64  `json:"intervalMillis"`
	Path               string `json:"path,omitempty"`
	Port               int32  `json:"port"`
	Protocol           string `json:"protocol"`
	TimeoutMillis      int64  `json:"timeoutMillis"`
	UnhealthyThreshold int32  `json:"unhealthyThreshold"`
}

type Listener struct {
	PortMapping PortMapping  `json:"portMapping"`
	HealthCheck *HealthCheck `json:"healthCheck,omitempty"`
}

type CloudMapAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type CloudMapServiceDiscovery struct {
	NamespaceName string              `json:"namespaceName"`
	ServiceName   string              `json:"serviceName"`
	Attributes    []CloudMapAttribute `json:"attributes,omitempty"`
}

type ServiceDiscovery struct {
	AWSCloudMap *CloudMapServiceDiscovery `json:"awsCloudMap,omitempty"`
}

type VirtualServiceBackend struct {
	VirtualServiceName string `json:"virtualServiceName"`
}

type Backend struct {
	VirtualService VirtualServiceBackend `json:"virtualService"`
}

type VirtualNodeSpec struct {
	ServiceDiscovery ServiceDiscovery `json:"serviceDiscovery"`
	Listeners        []Listener       `json:"listeners"`
	Backends         []Backend        `json:"backends,omitempty"`
}

type VirtualRouterListener struct {
	PortMapping PortMapping `json:"portMapping"`
}

type VirtualRouterSpec struct {
	Listeners []VirtualRouterListener `json:"listeners"`
}

type WeightedTarget struct {
	VirtualNode string `json:"virtualNode"`
	Weight      int32  `json:"weight"`
}

type RouteMatch struct {
	Prefix string `json:"prefix"`
}

type RouteAction struct {
	WeightedTargets []WeightedTarget `json:"weightedTargets"`
}

type HTTPRoute struct {
	Match  RouteMatch  `json:"match"`
	Action RouteAction `json:"action"`
}

type RouteSpec struct {
	HTTPRoute *HTTPRoute `json:"httpRoute,omitempty"`
	TCPRoute  *TCPRoute  `json:"tcpRoute,omitempty"`
}

// TCP routes carry no match rule.
type TCPRoute struct {
	Action RouteAction `json:"action"`
}

type VirtualNodeProvider struct {
	VirtualNodeName string `json:"virtualNodeName"`
}

type VirtualRouterProvider struct {
	VirtualRouterName string `json:"virtualRouterName"`
}

// Exactly one of VirtualNode or VirtualRouter is set.
type VirtualServiceProvider struct {
	VirtualNode   *VirtualNodeProvider   `json:"virtualNode,omitempty"`
	VirtualRouter *VirtualRouterProvider `json:"virtualRouter,omitempty"`
}

type VirtualServiceSpec struct {
	Provider VirtualServiceProvider `json:"provider"`
}
