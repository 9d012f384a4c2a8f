package ux

// ANSI color helpers
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

// StatusColor returns the color for a task or worker status tag.
func StatusColor(status string) string {
	switch status {
	case "completed", "active", "idle":
		return Green
	case "in_progress":
		return Cyan
	case "blocked":
		return Yellow
	case "failed", "retired":
		return Red
	default:
		return Dim
	}
}
