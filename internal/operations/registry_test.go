package operations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStep struct {
	stepInfo
}

func newStubStep(id string, deps ...string) *stubStep {
	return &stubStep{stepInfo: newStepInfo(id, "Stub "+id, deps...)}
}

func (s *stubStep) Validate(*OperationState) error                 { return nil }
func (s *stubStep) Execute(context.Context, *OperationState) error { return nil }

func ids(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.ID()
	}
	return out
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStubStep("a")))

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newStubStep("")))
	assert.Error(t, r.Register(newStubStep("a")), "duplicate ID")

	assert.True(t, r.Has("a"))
	step, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "Stub a", step.Name())

	_, err = r.Get("missing")
	assert.Error(t, err)
}

func TestRegistry_GetDependencyOrder(t *testing.T) {
	tests := []struct {
		name    string
		steps   []Step
		want    []string
		wantErr string
	}{
		{
			name:  "chain registered out of order",
			steps: []Step{newStubStep("write", "aggregate"), newStubStep("fetch"), newStubStep("aggregate", "fetch")},
			want:  []string{"fetch", "aggregate", "write"},
		},
		{
			name:  "siblings keep registration order",
			steps: []Step{newStubStep("a"), newStubStep("c", "a"), newStubStep("b", "a")},
			want:  []string{"a", "c", "b"},
		},
		{
			name:    "missing dependency",
			steps:   []Step{newStubStep("a", "ghost")},
			wantErr: "non-existent step ghost",
		},
		{
			name:    "cycle",
			steps:   []Step{newStubStep("a", "b"), newStubStep("b", "a")},
			wantErr: "cycle",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, s := range tt.steps {
				require.NoError(t, r.Register(s))
			}
			got, err := r.GetDependencyOrder()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}
