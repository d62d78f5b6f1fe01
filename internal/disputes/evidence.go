package disputes

import "strings"

var videoSuffixes = []string{".mp4", ".mov", ".avi", ".webm"}

// IsVideo reports whether ref points at a video file. Query strings and
// fragments are ignored so signed storage URLs still match.
func IsVideo(ref string) bool {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.ToLower(ref)
	for _, suffix := range videoSuffixes {
		if strings.HasSuffix(ref, suffix) {
			return true
		}
	}
	return false
}

// HasVideo reports whether any evidence reference is a video.
func HasVideo(evidence []string) bool {
	for _, ref := range evidence {
		if IsVideo(ref) {
			return true
		}
	}
	return false
}
