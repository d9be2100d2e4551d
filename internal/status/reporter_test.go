package status

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_LatestWins(t *testing.T) {
	m := &Memory{}

	Reportf(m, Info, "Loading %s…", "skills")
	Reportf(m, Success, "Loaded %s (%d).", "skills", 3)

	msg, sev := m.Last()
	require.Equal(t, "Loaded skills (3).", msg)
	require.Equal(t, Success, sev)
}

func TestReportf_NilReporterIsNoOp(t *testing.T) {
	require.NotPanics(t, func() {
		Reportf(nil, Error, "dropped %d", 1)
	})
}
