package wellknown

const (
	ATTRIBUTE_TASK_FAMILY = "ECS_TASK_DEFINITION_FAMILY" // discovery attribute telling apart services that share a discovery name
	ROUTE_MATCH_PREFIX    = "/"
	REDIS_KEY_PREFIX      = "meshdemo"
	PLAN_API_VERSION      = "meshdemo.greymatter.io/v1alpha1"
	PLAN_KIND             = "MeshPlan"
)
