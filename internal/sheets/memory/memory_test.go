package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billtracker/internal/core"
	"billtracker/internal/export"
)

func TestWriteReportReplacesTabs(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.WriteReport(ctx, export.BuildReport([]core.Bill{{SerialNo: 1, Network: "P2P"}, {SerialNo: 2, Network: "ILL"}}))
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)
	assert.Len(t, s.Tab(export.BillsSheet), 3)
	assert.Len(t, s.Tab(export.AnalyticsSheet), 3)

	_, err = s.WriteReport(ctx, export.BuildReport([]core.Bill{{SerialNo: 1, Network: "P2P"}}))
	require.NoError(t, err)
	assert.Len(t, s.Tab(export.BillsSheet), 2)
	assert.Equal(t, 2, s.Writes())

	_, err = s.WriteReport(ctx, export.BuildReport(nil))
	require.NoError(t, err)
	assert.Len(t, s.Tab(export.BillsSheet), 1)
	assert.Empty(t, s.Tab(export.AnalyticsSheet))
}
