package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionEventName(t *testing.T) {
	assert.Equal(t, "lead.workflow.submit", TransitionEventName("lead", "submit"))
}

func TestValidateEventName(t *testing.T) {
	valid := []string{
		"lead.workflow.submit",
		"order.workflow.approve",
		"a.b",
	}
	for _, name := range valid {
		assert.NoError(t, ValidateEventName(name), name)
	}

	invalid := []string{
		"",
		"lead",
		"lead.workflow.set_price",
		"Lead.workflow.submit",
		"lead.workflow.",
		".workflow.submit",
		"lead.workflow.submit ",
	}
	for _, name := range invalid {
		assert.Error(t, ValidateEventName(name), name)
	}
}
