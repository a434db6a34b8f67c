package discover

// Event topics published by the Discover module.
const (
	TopicRunCompleted = "discover.run.completed"
	TopicRunFailed    = "discover.run.failed"
)
