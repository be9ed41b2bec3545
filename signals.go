package reflux

import "github.com/zoobzio/capitan"

// Store lifecycle signals.
var (
	// StoreCreated is emitted when a Store compiles its pipeline.
	StoreCreated = capitan.NewSignal(
		"reflux.store.created",
		"Store created",
	)

	// ActionReduced is emitted after the reducer applies an action and
	// subscribers have been notified.
	ActionReduced = capitan.NewSignal(
		"reflux.store.action.reduced",
		"Action reduced into new state",
	)

	// SubscriptionAdded is emitted when a subscriber registers.
	SubscriptionAdded = capitan.NewSignal(
		"reflux.store.subscription.added",
		"Subscriber registered",
	)

	// SubscriptionRemoved is emitted the first time an Unsubscribe handle is called.
	SubscriptionRemoved = capitan.NewSignal(
		"reflux.store.subscription.removed",
		"Subscriber removed",
	)
)

// Middleware signals.
var (
	// ActionDropped is emitted when built-in middleware cancels an action.
	ActionDropped = capitan.NewSignal(
		"reflux.middleware.action.dropped",
		"Action cancelled by middleware",
	)
)

// Epic signals.
var (
	// EpicStarted is emitted when a bridge is installed on a store.
	EpicStarted = capitan.NewSignal(
		"reflux.epic.started",
		"Epic bridge started",
	)

	// EpicEmitted is emitted for each action an epic redispatches.
	EpicEmitted = capitan.NewSignal(
		"reflux.epic.emitted",
		"Epic emitted an action",
	)

	// EpicStopped is emitted when a bridge's output stream ends.
	EpicStopped = capitan.NewSignal(
		"reflux.epic.stopped",
		"Epic bridge stopped",
	)
)

// Command signals.
var (
	// CommandStarted is emitted before a command runs.
	CommandStarted = capitan.NewSignal(
		"reflux.command.started",
		"Command started",
	)

	// CommandCompleted is emitted the first time a command reports completion.
	CommandCompleted = capitan.NewSignal(
		"reflux.command.completed",
		"Command completed",
	)
)

// Feed signals.
var (
	// FeedStarted is emitted when a Feed begins watching its sources.
	FeedStarted = capitan.NewSignal(
		"reflux.feed.started",
		"Feed watching started",
	)

	// FeedStopped is emitted when a Feed source stops.
	FeedStopped = capitan.NewSignal(
		"reflux.feed.stopped",
		"Feed watching stopped",
	)

	// FeedChangeReceived is emitted when raw data arrives from a source.
	FeedChangeReceived = capitan.NewSignal(
		"reflux.feed.change.received",
		"Raw message received from source",
	)

	// FeedDecodeFailed is emitted when a message cannot be decoded into an action.
	FeedDecodeFailed = capitan.NewSignal(
		"reflux.feed.decode.failed",
		"Message decode failed",
	)

	// FeedDispatched is emitted after a decoded action is dispatched.
	FeedDispatched = capitan.NewSignal(
		"reflux.feed.dispatched",
		"Decoded action dispatched",
	)

	// FeedHealthChanged is emitted when a Feed transitions between health states.
	FeedHealthChanged = capitan.NewSignal(
		"reflux.feed.health.changed",
		"Feed health transition",
	)
)
