package notify

import (
	"fmt"
	"strings"
	"time"
)

// FormatReplayMessage creates a replay-completed notification body.
func FormatReplayMessage(userID string, plays int, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("User: %s\n", userID))
	sb.WriteString(fmt.Sprintf("Plays streamed: %d\n", plays))
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Second)))

	return sb.String()
}

// FormatFailureMessage creates a live-feed failure notification body.
func FormatFailureMessage(cause error) string {
	var sb strings.Builder

	sb.WriteString("The live feed stream terminated with an error.\n")
	sb.WriteString("Subscribers must reconnect to resume.")

	if cause != nil {
		sb.WriteString(fmt.Sprintf("\n\nError: %v", cause))
	}

	return sb.String()
}
