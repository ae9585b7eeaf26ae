package service

import (
	"strings"

	"github.com/mssola/useragent"
)

// deviceKey is the details field the service reserves for the parsed device
// summary; a caller-supplied value under the same key is preserved.
const deviceKey = "device"

// deviceSummary condenses a User-Agent string to "Browser on OS" for the
// details payload, e.g. "Chrome on Linux" or "Safari on iPhone".
func deviceSummary(userAgentString string) string {
	if userAgentString == "" {
		return ""
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()
	os := ua.OS()

	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			os = platform
		}
	}

	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + os)
}

// enrichDetails copies the caller's details and adds the device summary.
// The input map is never mutated.
func enrichDetails(details map[string]any, userAgentString string) map[string]any {
	summary := deviceSummary(userAgentString)
	if len(details) == 0 && summary == "" {
		return nil
	}

	out := make(map[string]any, len(details)+1)
	if summary != "" {
		out[deviceKey] = summary
	}
	for k, v := range details {
		out[k] = v
	}
	return out
}
