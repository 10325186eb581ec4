package events

// Event enumerates high-level topics inside the strategy engine.
type Event string

const (
	EventSignal         Event = "signal"
	EventTrade          Event = "trade"
	EventWebhookCommand Event = "webhook_command"
)
