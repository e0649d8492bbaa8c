package reliability

import "strings"

// Indicators of a transient network-class failure. Anything else reported by
// a capability (bad auth, validation) is treated as permanent for the task.
var networkIndicators = []string{
	"network",
	"socket",
	"connection",
	"timeout",
	"timed out",
	"no such host",
	"getaddrinfo",
	"dns",
	"unable to find the server",
	"client_connector_error",
	"server disconnected",
	"unreachable",
	"broken pipe",
}

// IsNetworkFailure classifies an error as transient (retry by parking the
// task) vs permanent (finalize with an annotation).
func IsNetworkFailure(err error) bool {
	if err == nil {
		return false
	}
	return IsNetworkFailureMessage(err.Error())
}

func IsNetworkFailureMessage(msg string) bool {
	lowered := strings.ToLower(msg)
	for _, k := range networkIndicators {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}
