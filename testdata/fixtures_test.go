package testdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/hand"
)

func TestLoadSequence(t *testing.T) {
	frames, err := LoadSequence("swipe")
	require.NoError(t, err)
	require.Len(t, frames, 4)

	base := detector.OpenPalmLandmarks(hand.Right)
	require.Len(t, frames[3], 1)
	assert.InDelta(t, base.Points[hand.Wrist].X+0.03, frames[3][0].Points[hand.Wrist].X, 1e-12)
	assert.Equal(t, "Right", frames[3][0].Handedness)
}

func TestLoadSequence_Repeat(t *testing.T) {
	frames, err := LoadSequence("lost")
	require.NoError(t, err)
	require.Len(t, frames, 3)
	for _, f := range frames {
		assert.Empty(t, f)
	}

	frames, err = LoadSequence("hold_still")
	require.NoError(t, err)
	require.Len(t, frames, 5)
	require.Len(t, frames[0], 2)
	assert.Equal(t, "Left", frames[0][0].Handedness)
}

func TestLoadSequence_Missing(t *testing.T) {
	_, err := LoadSequence("nope")
	assert.Error(t, err)
}
