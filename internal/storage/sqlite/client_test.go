package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniconsult/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.InitSchema())
	return client
}

func TestInsertAndGetQueryHistory(t *testing.T) {
	client := newTestClient(t)

	base := time.Now().Add(-time.Minute)
	for i, path := range []string{"structured", "rag", "cache"} {
		require.NoError(t, client.InsertQueryRecord(&models.QueryRecord{
			ID:         string(rune('a' + i)),
			QueryText:  "học phí?",
			Answer:     "10 triệu",
			RouterPath: path,
			FromCache:  path == "cache",
			LatencyMS:  120,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	records, err := client.GetQueryHistory(10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, "cache", records[0].RouterPath)
	assert.True(t, records[0].FromCache)
	assert.Equal(t, "học phí?", records[0].QueryText)
	assert.Equal(t, 120, records[0].LatencyMS)
}

func TestGetQueryHistory_Limit(t *testing.T) {
	client := newTestClient(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, client.InsertQueryRecord(&models.QueryRecord{
			ID:        string(rune('a' + i)),
			QueryText: "q",
			CreatedAt: time.Now(),
		}))
	}

	records, err := client.GetQueryHistory(2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestStoreFeedback(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, client.InsertQueryRecord(&models.QueryRecord{
		ID:        "q1",
		QueryText: "học phí?",
		CreatedAt: time.Now(),
	}))

	assert.NoError(t, client.StoreFeedback(&models.Feedback{
		QueryID: "q1",
		Helpful: true,
		Comment: "trả lời đúng",
	}))
}

func TestStoreFeedback_UnknownQueryRejected(t *testing.T) {
	client := newTestClient(t)

	// Foreign keys are on; feedback must reference a recorded query.
	assert.Error(t, client.StoreFeedback(&models.Feedback{QueryID: "không tồn tại", Helpful: false}))
}
