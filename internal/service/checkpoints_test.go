package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageProgressStrictlyIncreases(t *testing.T) {
	prev := 0.0
	for _, st := range stageOrder {
		assert.Greater(t, st.percent, prev, "stage %s", st.stage)
		prev = st.percent
	}
	assert.Equal(t, 100.0, StageCompleted.Progress())
	assert.Equal(t, 10.0, StageStarted.Progress())
	assert.Zero(t, Stage("unknown").Progress())
}
