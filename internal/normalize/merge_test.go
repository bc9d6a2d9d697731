package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitaliisemenov/alert-router/internal/alert"
)

func mkAlert(name, entityKey, entityVal string) *alert.Alert {
	labels := map[string]string{"alertname": name, alert.LabelSource: "prometheus"}
	if entityKey != "" {
		labels[entityKey] = entityVal
	}
	return &alert.Alert{Status: alert.StatusFiring, Labels: labels}
}

func TestMergeEntities_CollapsesSameAlertnameDifferentInstance(t *testing.T) {
	in := []*alert.Alert{
		mkAlert("HighCPU", "instance", "host-1"),
		mkAlert("HighCPU", "instance", "host-2"),
	}
	out := mergeEntities(in)
	assert.Len(t, out, 1)
	assert.Equal(t, []string{"host-1", "host-2"}, out[0].MergedEntities)
}

func TestMergeEntities_DifferentAlertnameNeverMerges(t *testing.T) {
	in := []*alert.Alert{
		mkAlert("HighCPU", "instance", "host-1"),
		mkAlert("LowDisk", "instance", "host-1"),
	}
	out := mergeEntities(in)
	assert.Len(t, out, 2)
}

func TestMergeEntities_NoEntityLabelPassesThroughUnchanged(t *testing.T) {
	in := []*alert.Alert{mkAlert("HighCPU", "", "")}
	out := mergeEntities(in)
	assert.Len(t, out, 1)
	assert.Empty(t, out[0].MergedEntities)
}

func TestMergeEntities_MultipleEntityLabelsNeverMerges(t *testing.T) {
	a := mkAlert("HighCPU", "instance", "host-1")
	a.Labels["pod"] = "pod-1"
	b := mkAlert("HighCPU", "instance", "host-2")
	b.Labels["pod"] = "pod-2"

	out := mergeEntities([]*alert.Alert{a, b})
	assert.Len(t, out, 2, "alerts with more than one varying entity dimension stay distinct")
}

func TestMergeEntities_PreservesFirstSeenOrder(t *testing.T) {
	in := []*alert.Alert{
		mkAlert("A", "instance", "h1"),
		mkAlert("B", "instance", "h1"),
		mkAlert("A", "instance", "h2"),
	}
	out := mergeEntities(in)
	assert.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Name())
	assert.Equal(t, "B", out[1].Name())
}
