package utils

import (
	"log"
	"strings"
)

// LogEvent prints one structured line per dispatch event. The module tag
// groups lines by subsystem (DISPATCH, LIFECYCLE, INCIDENT); keep messages
// short and free of customer data.
func LogEvent(requestID, module, action, message string) {
	req := strings.TrimSpace(requestID)
	if req == "" {
		req = "-"
	}
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, req, message)
}
