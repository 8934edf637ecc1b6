package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapResult_Phase(t *testing.T) {
	t.Parallel()

	r := &BootstrapResult{
		Phases: []PhaseResult{
			{Name: "interpreter", Status: StatusOK},
			{Name: "tool", Status: StatusError, Error: "not found"},
		},
	}

	require.NotNil(t, r.Phase("tool"))
	assert.Equal(t, StatusError, r.Phase("tool").Status)
	assert.Nil(t, r.Phase("model:llama3.2"))
}

func TestPhaseResult_JSONOmitsEmptyError(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(PhaseResult{Name: "virtualenv", Status: StatusOK})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"virtualenv","status":"ok"}`, string(data))

	data, err = json.Marshal(PhaseResult{Name: "tool", Status: StatusError, Error: "missing"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"tool","status":"error","error":"missing"}`, string(data))
}
