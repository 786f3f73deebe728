package events

const (
	TopicRouterInterface = "osvswitch:events:rif"
)
