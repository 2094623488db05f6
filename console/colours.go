package console

const (
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
	Gray   = "\033[90m" // Bright black, often appears as gray

	ResetColor = "\033[0m" // Reset to default color
)

// clientColors tints entitlement tags in status output.
var clientColors = map[string]string{
	"hotel": Cyan,
	"bus":   Yellow,
	"taxi":  Green,
}

func colorize(enabled bool, color, text string) string {
	if !enabled || color == "" {
		return text
	}
	return color + text + ResetColor
}
