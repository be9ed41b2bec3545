package reflux

import "github.com/zoobzio/capitan"

// Field keys for reflux events.
var (
	// KeyStore is the name of the store.
	KeyStore = capitan.NewStringKey("store")

	// KeyAction is the Go type name of the action.
	KeyAction = capitan.NewStringKey("action")

	// KeyRevision is the store revision produced by a reduction.
	KeyRevision = capitan.NewIntKey("revision")

	// KeySubscribers is the number of live subscriptions.
	KeySubscribers = capitan.NewIntKey("subscribers")

	// KeyToken is the subscription token.
	KeyToken = capitan.NewStringKey("token")

	// KeyMiddleware is the name of the middleware that acted.
	KeyMiddleware = capitan.NewStringKey("middleware")

	// KeyEpic is the name of the epic bridge.
	KeyEpic = capitan.NewStringKey("epic")

	// KeyCommand is the name of the command.
	KeyCommand = capitan.NewStringKey("command")

	// KeyHealth is the current health of a Feed.
	KeyHealth = capitan.NewStringKey("health")

	// KeyOldHealth is the previous health before a transition.
	KeyOldHealth = capitan.NewStringKey("old_health")

	// KeyNewHealth is the new health after a transition.
	KeyNewHealth = capitan.NewStringKey("new_health")

	// KeySource is the index of the feed source.
	KeySource = capitan.NewIntKey("source")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDebounce is the configured debounce duration.
	KeyDebounce = capitan.NewDurationKey("debounce")
)
