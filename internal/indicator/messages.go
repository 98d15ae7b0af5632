package indicator

import (
	"fmt"
	"strings"
)

func connectedText(address string) string {
	return fmt.Sprintf("connected to %s", address)
}

func disconnectedText(address string) string {
	return fmt.Sprintf("disconnected from %s", address)
}

func runningText(names []string) string {
	if len(names) == 0 {
		return "running: (none)"
	}
	return "running: " + strings.Join(names, ", ")
}
