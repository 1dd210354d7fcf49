package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNetworkSource(t *testing.T) {
	assert.True(t, isNetworkSource("rtsp://camera.local/stream"))
	assert.True(t, isNetworkSource("http://camera.local/mjpeg"))
	assert.True(t, isNetworkSource("https://camera.local/mjpeg"))
	assert.False(t, isNetworkSource("/dev/video0"))
}

func TestDedupeRemovesDuplicateCandidates(t *testing.T) {
	in := []candidate{
		{device: "/dev/video0", backend: "v4l2"},
		{device: "/dev/video0", backend: "v4l2"},
		{device: "/dev/video0", backend: ""},
	}
	out := dedupe(in)
	assert.Len(t, out, 2)
}

func TestCandidatesExplicitNetworkDeviceIsSingleCandidate(t *testing.T) {
	s := &Source{cfg: Config{Device: "rtsp://camera.local/stream"}}
	got := s.candidates()
	assert.Equal(t, []candidate{{device: "rtsp://camera.local/stream", backend: ""}}, got)
}

func TestCandidatesExplicitLocalDeviceTriesBothBackends(t *testing.T) {
	s := &Source{cfg: Config{Device: "/dev/video2"}}
	got := s.candidates()
	assert.Equal(t, []candidate{
		{device: "/dev/video2", backend: "v4l2"},
		{device: "/dev/video2", backend: ""},
	}, got)
}

func TestCandidatesFallBackToIndexedRange(t *testing.T) {
	s := &Source{cfg: Config{}}
	got := s.candidates()
	assert.Contains(t, got, candidate{device: "/dev/video0", backend: "v4l2"})
	assert.Contains(t, got, candidate{device: "/dev/video5", backend: ""})
}

func TestFrameCloneIsIndependentCopy(t *testing.T) {
	f := &Frame{Width: 2, Height: 1, Pix: []byte{1, 2, 3, 4, 5, 6}}
	cp := f.clone()
	cp.Pix[0] = 99
	assert.Equal(t, byte(1), f.Pix[0])
	assert.Nil(t, (*Frame)(nil).clone())
}
