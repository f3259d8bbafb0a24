package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Canonical(t *testing.T) {
	data, err := Snapshot("sample", sampleResult())
	require.NoError(t, err)

	assert.Equal(t,
		`{"pending":0,"scenario":"sample","trace":[`+
			`{"file":"a.json","outcome":"sent","seq":1,"task":"task-1","type":"upload"},`+
			`{"file":"bad.json","outcome":"decode_failure","seq":2,"task":"task-2","type":"upload"},`+
			`{"payload":{"field1":[1,2,3,4]},"seq":3,"tick":1,"type":"received"},`+
			`{"seq":4,"tick":2,"type":"empty"}]}`,
		string(data))
}

func TestAssertGolden_ExistingResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/single_upload.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "single_upload", result))
}
