package constant

const (
	LearningTopic = "knowledge.learning"

	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"

	ServiceName = "tokinarc-sales-backend"
)
