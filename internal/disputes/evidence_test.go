package disputes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVideo(t *testing.T) {
	cases := map[string]bool{
		"https://cdn.pasma.test/unboxing.mp4":                     true,
		"https://cdn.pasma.test/unboxing.MOV?X-Goog-Signature=ab": true,
		"gs://evidence/clip.webm#t=10":                            true,
		"clip.avi":                                                true,
		"https://cdn.pasma.test/photo.jpg":                        false,
		"https://cdn.pasma.test/video.mp4.jpg":                    false,
		"https://cdn.pasma.test/photo.jpg?name=x.mp4":             false,
		"":                                                        false,
	}
	for ref, want := range cases {
		assert.Equal(t, want, IsVideo(ref), ref)
	}
}

func TestHasVideo(t *testing.T) {
	assert.False(t, HasVideo(nil))
	assert.False(t, HasVideo([]string{"a.png", "b.jpeg"}))
	assert.True(t, HasVideo([]string{"a.png", "b.Mp4"}))
}
