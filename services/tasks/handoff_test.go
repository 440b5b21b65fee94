package tasks

import (
	"testing"

	"bookflow/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoffTaskCarriesPayload(t *testing.T) {
	in := models.HandoffPayload{SessionID: "s1", StageID: "human_handoff", Channel: "whatsapp", UserID: "u1", LastMessage: "help", Reason: "asked for a person"}

	task, opts, err := NewHandoffTask(in)
	require.NoError(t, err)
	assert.Equal(t, TypeHandoffNotify, task.Type())
	assert.Len(t, opts, 2)

	out, err := ParseHandoffTask(task)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
