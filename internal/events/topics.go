package events

// Topic constants for domain events.
const (
	TopicOrderCreated     = "order.created"
	TopicRedemptionFailed = "order.redemption_failed"
	TopicBookingCreated   = "booking.created"
	TopicBookingStatus    = "booking.status_changed"
	TopicCapacityLow      = "capacity.low"
	TopicCapacityFull     = "capacity.full"
)

// DefaultTopics returns the topics published to external notifiers.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicRedemptionFailed,
		TopicBookingCreated,
		TopicBookingStatus,
		TopicCapacityLow,
		TopicCapacityFull,
	}
}
