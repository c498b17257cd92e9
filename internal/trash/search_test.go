package trash

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/internal/models"
)

func trashItem(t *testing.T, b *Bin, ws *models.Workstream) *models.TrashedWorkstream {
	t.Helper()
	item, err := b.MoveToTrash(ws, "")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	return item
}

func TestSearch_MatchesNameFirst(t *testing.T) {
	b := newTestBin(t, 30)
	require.NoError(t, b.Load())

	ws := testWorkstream("WS1", "Fix login redirect")
	ws.Messages = []models.Message{{Role: models.RoleHuman, Content: "the login page loops"}}
	trashItem(t, b, ws)

	results := b.Search("login")
	require.Len(t, results, 1)
	assert.Equal(t, "name", results[0].Field, "name wins over message for the same item")
	assert.Contains(t, results[0].Preview, "login")
}

func TestSearch_MetadataAndMessages(t *testing.T) {
	b := newTestBin(t, 30)
	require.NoError(t, b.Load())

	byMeta := testWorkstream("WS1", "unrelated")
	byMeta.Metadata = map[string]string{"ticketKey": "PROJ-123"}
	trashItem(t, b, byMeta)

	byMsg := testWorkstream("WS2", "also unrelated")
	byMsg.Messages = []models.Message{{Role: models.RoleAssistant, Content: "filed as PROJ-123 upstream"}}
	trashItem(t, b, byMsg)

	results := b.Search("proj-123")
	require.Len(t, results, 2)
	fields := []string{results[0].Field, results[1].Field}
	assert.Contains(t, fields, "metadata:ticketKey")
	assert.Contains(t, fields, "message")
}

func TestSearch_EmptyQuery(t *testing.T) {
	b := newTestBin(t, 30)
	require.NoError(t, b.Load())
	trashItem(t, b, testWorkstream("WS1", "anything"))

	assert.Nil(t, b.Search("   "))
}

func TestSearch_PreviewTruncation(t *testing.T) {
	b := newTestBin(t, 30)
	require.NoError(t, b.Load())

	long := strings.Repeat("x", 100) + "NEEDLE" + strings.Repeat("y", 100)
	ws := testWorkstream("WS1", "haystack")
	ws.Messages = []models.Message{{Role: models.RoleHuman, Content: long}}
	trashItem(t, b, ws)

	results := b.Search("needle")
	require.Len(t, results, 1)
	p := results[0].Preview
	assert.True(t, strings.HasPrefix(p, "..."))
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.Contains(t, p, "NEEDLE")
	assert.Less(t, len(p), len(long))
}

func TestSmartSearch_ScorePrecedence(t *testing.T) {
	b := newTestBin(t, 30)
	require.NoError(t, b.Load())

	exact := testWorkstream("EXACT", "payments")
	nameSub := testWorkstream("NAMESUB", "payments retry loop")
	meta := testWorkstream("META", "checkout fix")
	meta.Metadata = map[string]string{"branch": "payments-hotfix"}
	msg := testWorkstream("MSG", "release prep")
	msg.Messages = []models.Message{{Role: models.RoleHuman, Content: "the payments job is stuck"}}

	for _, ws := range []*models.Workstream{msg, meta, nameSub, exact} {
		trashItem(t, b, ws)
	}

	results := b.SmartSearch("payments")
	require.Len(t, results, 4)
	assert.Equal(t, "EXACT", results[0].Item.ID)
	assert.Equal(t, float64(scoreNameExact), results[0].Score)
	assert.Equal(t, "NAMESUB", results[1].Item.ID)
	assert.Equal(t, float64(scoreNameSubstr), results[1].Score)
	assert.Equal(t, "META", results[2].Item.ID)
	assert.Equal(t, float64(scoreMetaSubstr), results[2].Score)
	assert.Equal(t, "MSG", results[3].Item.ID)
	assert.Equal(t, float64(scoreMessageSubstr), results[3].Score)
}

func TestSmartSearch_MetadataBeatsMessageForTicketQuery(t *testing.T) {
	b := newTestBin(t, 30)
	require.NoError(t, b.Load())

	ticket := testWorkstream("TICKET", "auth refactor")
	ticket.Metadata = map[string]string{"ticketKey": "PROJ-123"}
	trashItem(t, b, ticket)

	chatter := testWorkstream("CHATTER", "standup notes")
	chatter.Messages = []models.Message{{Role: models.RoleHuman, Content: "mentioned PROJ-123 in passing"}}
	trashItem(t, b, chatter)

	results := b.SmartSearch("PROJ-123")
	require.Len(t, results, 2)
	assert.Equal(t, "TICKET", results[0].Item.ID)
	assert.GreaterOrEqual(t, results[0].Score, float64(scoreMetaSubstr))
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSmartSearch_KeywordOverlap(t *testing.T) {
	b := newTestBin(t, 30)
	require.NoError(t, b.Load())

	ws := testWorkstream("WS1", "flaky integration tests on ci")
	trashItem(t, b, ws)

	// No single substring match, but two of three keywords hit the name.
	results := b.SmartSearch("flaky tests runner")
	require.Len(t, results, 1)
	assert.InDelta(t, 2.0/3.0*scoreOverlapScale, results[0].Score, 0.001)
}

func TestSmartSearch_FloorDropsWeakMatches(t *testing.T) {
	b := newTestBin(t, 30)
	require.NoError(t, b.Load())

	ws := testWorkstream("WS1", "flaky integration tests")
	trashItem(t, b, ws)

	// One of four keywords: 15 points, below the floor.
	assert.Empty(t, b.SmartSearch("flaky dashboard metrics alerting"))
}

func TestSmartSearch_MessageOverlapDamped(t *testing.T) {
	b := newTestBin(t, 30)
	require.NoError(t, b.Load())

	ws := testWorkstream("WS1", "unrelated title")
	ws.Messages = []models.Message{
		{Role: models.RoleHuman, Content: "deploy pipeline broken again"},
	}
	trashItem(t, b, ws)

	results := b.SmartSearch("deploy pipeline")
	require.Len(t, results, 1)
	// Full-phrase message substring outranks the damped overlap path.
	assert.Equal(t, float64(scoreMessageSubstr), results[0].Score)
}

func TestExtractKeywords(t *testing.T) {
	kws := extractKeywords("please find the flaky ci-runner tests!")
	assert.Equal(t, []string{"flaky", "runner", "tests"}, kws)
}
