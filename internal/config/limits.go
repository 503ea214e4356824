package config

import "time"

// WebSocket connection limits and constraints
const (
	// Connection limits
	MaxConnectionsPerDebate = 10
	MaxDebatesPerInstance   = 500
	MaxTotalConnections     = 5000

	// Rate limiting
	MaxMessagesPerSecond = 10
	RateLimitWindow      = time.Second

	// Timeouts
	WriteTimeout = 10 * time.Second
	ReadTimeout  = 60 * time.Second
	PingInterval = 30 * time.Second
	PongTimeout  = 90 * time.Second // 3x ping interval for network delay tolerance

	// Channel buffers
	ClientSendBufferSize   = 256
	HubBroadcastBufferSize = 256
)

// Debate timing
const (
	// TickInterval drives the per-second countdown inside a phase.
	TickInterval = time.Second

	// TimerNotifyEvery bounds notification volume: a lightweight timer
	// notification goes out every N ticks, not every second.
	TimerNotifyEvery = 5

	// DebateTTL is how long a created debate stays loadable.
	DebateTTL = 24 * time.Hour
)

// Resilience tuning (see services.GuardConfig for the injectable form)
const (
	GuardMaxRetries       = 3
	GuardBaseDelay        = 500 * time.Millisecond
	GuardDelayMultiplier  = 2.0
	GuardMaxDelay         = 8 * time.Second
	BreakerOpenThreshold  = 5
	BreakerResetAfter     = 60 * time.Second
	HealthErrorWindow     = 5 * time.Minute
	HealthMaxWindowErrors = 10
)

// Prompting
const (
	// TranscriptExcerptChars bounds how much recent transcript is fed back
	// into utterance prompts.
	TranscriptExcerptChars = 1200
)
