package streams

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfence/detection-api/internal/model"
)

func testStreams() []model.StreamInfo {
	return []model.StreamInfo{
		{
			Name:        "drone",
			Description: "Main drone detection stream",
			RTSPURL:     "rtsp://mediamtx:8554/drone",
			HLSURL:      "http://mediamtx:8888/drone/index.m3u8",
			Status:      "active",
		},
		{
			Name:    "perimeter",
			RTSPURL: "rtsp://mediamtx:8554/perimeter",
		},
	}
}

func TestRegistry_Get(t *testing.T) {
	r := New(testStreams())

	si, ok := r.Get("drone")
	require.True(t, ok)
	assert.Equal(t, "rtsp://mediamtx:8554/drone", si.RTSPURL)

	_, ok = r.Get("unknown")
	assert.False(t, ok)
}

func TestRegistry_DefaultStatus(t *testing.T) {
	r := New(testStreams())

	si, ok := r.Get("perimeter")
	require.True(t, ok)
	assert.Equal(t, "active", si.Status)
}

func TestRegistry_ListOrdered(t *testing.T) {
	r := New(testStreams())

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "drone", list[0].Name)
	assert.Equal(t, "perimeter", list[1].Name)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"drone", "perimeter"}, r.Names())
}

func TestRegistry_DuplicateNameLastWins(t *testing.T) {
	r := New([]model.StreamInfo{
		{Name: "drone", Description: "first"},
		{Name: "drone", Description: "second"},
	})

	require.Equal(t, 1, r.Len())
	si, _ := r.Get("drone")
	assert.Equal(t, "second", si.Description)
}

func TestRegistry_ReturnedSlicesAreCopies(t *testing.T) {
	r := New(testStreams())

	names := r.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"drone", "perimeter"}, r.Names())
}

func TestRegistry_Empty(t *testing.T) {
	r := New(nil)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.List())
}
