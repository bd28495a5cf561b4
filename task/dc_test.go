package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samsamfire/goethercat/task"
)

func TestPropagationDelayTwoSlaveLine(t *testing.T) {
	delay := task.PropagationDelay(0, 100, 300, 180, 220)
	assert.Equal(t, uint32(80), delay)
}
