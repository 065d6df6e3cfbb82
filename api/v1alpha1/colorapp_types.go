/*
Copyright 2022.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ColorApp describes the services of a Color App deployment and how traffic is routed among them.
type ColorApp struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`
	Spec              ColorAppSpec `json:"spec"`
}

// ColorAppSpec defines the topology to synthesize mesh resources for.
type ColorAppSpec struct {
	// Name of the mesh. Also used as the mesh name of every resource in it.
	// +optional
	MeshName string `json:"meshName,omitempty"`
	// Service identity of the gateway.
	// +optional
	Gateway string `json:"gateway,omitempty"`
	// Service identities of the backend variants, in declaration order.
	// The first is the default variant bound to the tier's canonical discovery name.
	Backends []string `json:"backends"`
	// Discovery namespace shared by every service.
	// +optional
	Namespace string `json:"namespace,omitempty"`
	// Canonical discovery name of the backend tier.
	// +optional
	Tier string `json:"tier,omitempty"`
	// Port every service and the router listen on.
	// +optional
	AppPort int32 `json:"appPort,omitempty"`
	// Listener protocol: one of http, http2, grpc, tcp.
	// +optional
	Protocol string `json:"protocol,omitempty"`
	// +optional
	RouteName string `json:"routeName,omitempty"`
	// +optional
	HealthCheck HealthCheck `json:"healthCheck,omitempty"`
	// +optional
	RoutePolicy RoutePolicy `json:"routePolicy,omitempty"`
	// When true, every backend may bind the tier's canonical discovery name and is told apart
	// by its task-family attribute. Requires discovery that supports attribute filtering.
	// +optional
	AttributeDiscrimination bool `json:"attributeDiscrimination,omitempty"`
}

// HealthCheck is the listener health-check policy applied to every virtual node.
type HealthCheck struct {
	Path               string `json:"path,omitempty"`
	IntervalMillis     int64  `json:"intervalMillis,omitempty"`
	TimeoutMillis      int64  `json:"timeoutMillis,omitempty"`
	HealthyThreshold   int32  `json:"healthyThreshold,omitempty"`
	UnhealthyThreshold int32  `json:"unhealthyThreshold,omitempty"`
}

type RouteMode string

const (
	// Routes across every backend except the default one.
	RouteSkipDefault RouteMode = "skipDefault"
	// Routes across every backend.
	RouteAll RouteMode = "all"
	// Routes to Targets with their given weights.
	RouteExplicit RouteMode = "explicit"
)

// RoutePolicy selects the weighted targets of the backend tier's route.
type RoutePolicy struct {
	// +optional
	Mode RouteMode `json:"mode,omitempty"`
	// Backend identity -> weight. Only used when Mode is explicit.
	// +optional
	Targets map[string]int32 `json:"targets,omitempty"`
}
