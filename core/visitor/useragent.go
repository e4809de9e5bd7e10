package visitor

import "strings"

// UserAgentInfo is what we can tell about a client from its User-Agent
// string alone.
type UserAgentInfo struct {
	Browser    string
	OS         string
	DeviceInfo string
}

// ParseUserAgent derives browser, OS and device class from a raw
// User-Agent header via substring matching. Order matters: Edge and
// Opera advertise "Chrome", and Chrome advertises "Safari", so the more
// specific tokens are checked first.
func ParseUserAgent(ua string) UserAgentInfo {
	if ua == "" {
		return UserAgentInfo{Browser: Unknown, OS: Unknown, DeviceInfo: Unknown}
	}
	return UserAgentInfo{
		Browser:    parseBrowser(ua),
		OS:         parseOS(ua),
		DeviceInfo: parseDevice(ua),
	}
}

func parseBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "Edg"):
		return "Edge"
	case strings.Contains(ua, "OPR") || strings.Contains(ua, "Opera"):
		return "Opera"
	case strings.Contains(ua, "Firefox"):
		return "Firefox"
	case strings.Contains(ua, "Chrome"):
		return "Chrome"
	case strings.Contains(ua, "Safari"):
		return "Safari"
	}
	return Unknown
}

func parseOS(ua string) string {
	switch {
	// iOS devices claim "like Mac OS X", check them before macOS
	case strings.Contains(ua, "iPhone") || strings.Contains(ua, "iPad") || strings.Contains(ua, "iPod"):
		return "iOS"
	// Android claims "Linux", check it first
	case strings.Contains(ua, "Android"):
		return "Android"
	case strings.Contains(ua, "Windows"):
		return "Windows"
	case strings.Contains(ua, "Mac"):
		return "macOS"
	case strings.Contains(ua, "Linux"):
		return "Linux"
	}
	return Unknown
}

func parseDevice(ua string) string {
	switch {
	case strings.Contains(ua, "iPad") || strings.Contains(strings.ToLower(ua), "tablet"):
		return "Tablet"
	// Android phones carry "Mobile"; Android without it is a tablet
	case strings.Contains(ua, "Android") && !strings.Contains(ua, "Mobile"):
		return "Tablet"
	case strings.Contains(ua, "Mobile") || strings.Contains(ua, "iPhone"):
		return "Mobile"
	}
	return "Desktop"
}
