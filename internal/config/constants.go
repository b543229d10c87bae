package config

import "time"

// Terminal frame. Larger terminals get a centered frame with a border.
const (
	MaxTermWidth  = 100
	MaxTermHeight = 40
	MinTermWidth  = 40
	MinTermHeight = 16
)

// Player
const (
	MaxUsernameLength = 16 // Maximum display length for player usernames
	MaxInputLength    = 48 // Longest line the player can type
)

// Shutdown
const (
	ShutdownDisplaySeconds = 10.0 // Seconds to show shutdown message before auto-disconnect
)

// Inactivity
const (
	InactivityWarnUser       = 90  // Seconds
	InactivityDisconnectUser = 120 // Seconds
)

// Client rendering
const (
	ClientTargetFPS       = 30
	ClientTargetFrameTime = time.Second / ClientTargetFPS
	FlashDuration         = 1200 * time.Millisecond // Feedback line after a submission
)

// Browser transport
const (
	SnapshotPushInterval = 100 * time.Millisecond
	WebWriteTimeout      = 5 * time.Second
	WebMaxMessageBytes   = 1024
)
