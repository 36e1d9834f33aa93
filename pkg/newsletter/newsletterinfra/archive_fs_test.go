package newsletterinfra

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Abraxas-365/mailflow/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArchive(t *testing.T) (*FSArchive, *fsxlocal.LocalFileSystem) {
	t.Helper()
	fs, err := fsxlocal.NewLocalFileSystem(t.TempDir())
	require.NoError(t, err)
	return NewFSArchive(fs), fs
}

func TestFSArchive_BatchesAndSummary(t *testing.T) {
	archive, fs := newArchive(t)
	ctx := context.Background()
	s := newsletter.Scope{NewsletterID: "nl-1", TenantID: "tenant-1", GroupUUID: "g-1"}

	batches, err := archive.LoadBatches(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, batches)
	summary, err := archive.LoadSummary(ctx, s)
	require.NoError(t, err)
	assert.Nil(t, summary)

	for _, idx := range []int{2, 1, 10} {
		res := newsletter.NewBatchResult(idx, []newsletter.EmailOutcome{
			{RecipientID: "r-1", Success: true, MessageID: "m"},
			{RecipientID: "r-2", Error: "rejected"},
		})
		require.NoError(t, archive.SaveBatch(ctx, s, res))
	}

	raw, err := fs.ReadFile(ctx, "newsletters/tenant-1/nl-1/g-1/batch-0002.json")
	require.NoError(t, err)
	var stored newsletter.BatchResult
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, 1, stored.Successful)
	assert.NotContains(t, string(raw), "@")

	batches, err = archive.LoadBatches(ctx, s)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{batches[0].BatchIndex, batches[1].BatchIndex, batches[2].BatchIndex})

	result := newsletter.WorkflowResult{
		NewsletterID: "nl-1",
		GroupUUID:    "g-1",
		Total:        6,
		Successful:   3,
		Failed:       3,
		Status:       newsletter.StatusPartiallySent,
		CompletedAt:  time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, archive.SaveSummary(ctx, s, result))

	summary, err = archive.LoadSummary(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, result, *summary)

	raw, err = fs.ReadFile(ctx, "newsletters/tenant-1/nl-1/g-1/summary.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tenantId": "tenant-1"`)

	batches, err = archive.LoadBatches(ctx, s)
	require.NoError(t, err)
	assert.Len(t, batches, 3)
}

func TestFSArchive_RejectsEscapingScope(t *testing.T) {
	archive, _ := newArchive(t)
	s := newsletter.Scope{NewsletterID: "../../..", TenantID: "..", GroupUUID: ".."}
	err := archive.SaveBatch(context.Background(), s, newsletter.BatchResult{BatchIndex: 1})
	assert.Error(t, err)
}
