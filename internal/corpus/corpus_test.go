package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniconsult/backend/internal/storage/models"
	"github.com/uniconsult/backend/internal/textnorm"
)

type fakeDB struct {
	pairs []models.QAPair
	err   error
}

func (f *fakeDB) FetchQAPairs() ([]models.QAPair, error) {
	return f.pairs, f.err
}

func writeQAFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	path := writeQAFile(t, `[
		{"question": "Học phí là bao nhiêu?", "answer": "10 triệu"},
		{"question": "Ký túc xá ở đâu?", "answer": "Cơ sở 2"}
	]`)

	records, err := LoadJSON(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Học phí là bao nhiêu?", records[0].Question)
	assert.Equal(t, SourceJSON, records[0].Source)
}

func TestLoadJSON_Missing(t *testing.T) {
	_, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadJSON_Malformed(t *testing.T) {
	path := writeQAFile(t, `{"not": "an array"}`)
	_, err := LoadJSON(path)
	assert.Error(t, err)
}

func TestBuild_MergesBothSources(t *testing.T) {
	path := writeQAFile(t, `[{"question": "Học phí là bao nhiêu?", "answer": "Từ file"}]`)
	db := &fakeDB{pairs: []models.QAPair{
		{QuestionID: 7, AnswerID: 9, Question: "Ký túc xá ở đâu?", Answer: "Cơ sở 2"},
	}}
	norm := textnorm.New(nil)

	records, err := Build(path, db, norm)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, SourceJSON, records[0].Source)
	assert.Equal(t, SourceMySQL, records[1].Source)
	assert.Equal(t, int64(7), records[1].QuestionID)
	assert.Equal(t, "ký túc xá ở đâu cơ sở 2", records[1].Content)
}

func TestBuild_DatabaseOverridesJSON(t *testing.T) {
	path := writeQAFile(t, `[{"question": "Học phí là bao nhiêu?", "answer": "Câu trả lời cũ"}]`)
	db := &fakeDB{pairs: []models.QAPair{
		{Question: "Học phí là bao nhiêu???", Answer: "Câu trả lời mới"},
	}}
	norm := textnorm.New(nil)

	records, err := Build(path, db, norm)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Câu trả lời mới", records[0].Answer)
	assert.Equal(t, SourceMySQL, records[0].Source)
}

func TestBuild_SurvivesFailedSources(t *testing.T) {
	norm := textnorm.New(nil)

	// Missing file and broken database still yield an (empty) corpus.
	records, err := Build(filepath.Join(t.TempDir(), "missing.json"), &fakeDB{err: errors.New("down")}, norm)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDedupe_LastWriterWins(t *testing.T) {
	norm := textnorm.New(nil)
	records := []Record{
		{Question: "Học phí là bao nhiêu?", Answer: "cũ"},
		{Question: "Ký túc xá ở đâu?", Answer: "cơ sở 2"},
		{Question: "học phí là bao nhiêu", Answer: "mới"},
	}

	out := Dedupe(records, norm)
	require.Len(t, out, 2)
	// Position of the first occurrence, content of the last.
	assert.Equal(t, "mới", out[0].Answer)
	assert.Equal(t, "cơ sở 2", out[1].Answer)
}

func TestDedupe_DropsEmpty(t *testing.T) {
	norm := textnorm.New(nil)
	records := []Record{
		{Question: "", Answer: "có trả lời"},
		{Question: "có câu hỏi", Answer: "   "},
		{Question: "?!", Answer: "câu hỏi toàn dấu câu"},
		{Question: "Câu hỏi thật", Answer: "Trả lời thật"},
	}

	out := Dedupe(records, norm)
	require.Len(t, out, 1)
	assert.Equal(t, "Câu hỏi thật", out[0].Question)
}

func TestCleanText_HTML(t *testing.T) {
	in := `<p>Học phí là <b>10 triệu</b></p><script>alert(1)</script><style>p{}</style>`
	assert.Equal(t, "Học phí là 10 triệu", CleanText(in))
}

func TestCleanText_Whitespace(t *testing.T) {
	assert.Equal(t, "a b c", CleanText("  a\t b\n\nc  "))
	assert.Equal(t, "a b", CleanText("a b"))
	assert.Equal(t, "", CleanText(""))
}

func TestCleanText_PlainTextUntouched(t *testing.T) {
	assert.Equal(t, "Học phí 10 triệu/năm", CleanText("Học phí 10 triệu/năm"))
}
