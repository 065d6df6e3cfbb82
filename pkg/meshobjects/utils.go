package meshobjects

import (
	"encoding/json"
	"fmt"
)

// Raw marshals a spec into the form stored on an Object.
func Raw(spec interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal spec: %w", err)
	}
	return json.RawMessage(data), nil
}

// VirtualNodeName returns the node name for a service identity.
func VirtualNodeName(identity string) string {
	return identity + "-vn"
}

// VirtualRouterName returns the router name for a backend tier.
func VirtualRouterName(tier string) string {
	return tier + "-vr"
}

// VirtualServiceName returns the name clients use to reach a tier.
func VirtualServiceName(discoveryName, namespace string) string {
	return fmt.Sprintf("%s.%s", discoveryName, namespace)
}
