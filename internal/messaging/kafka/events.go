package kafka

// Topics для Kafka.
const (
	TopicStorefrontEvents = "indiakart.storefront.events"
	TopicDeadLetterQueue  = "indiakart.dlq"
)

// Kafka headers публикуемых событий.
const (
	HeaderEventType     = "x-event-type"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)
