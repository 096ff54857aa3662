package instance

import "os"

// GetID returns the process identifier used to tag logs. ECOSWAP_INSTANCE_ID
// wins over the platform-provided DYNO name.
func GetID() string {
	for _, key := range []string{"ECOSWAP_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
