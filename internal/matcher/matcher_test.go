package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniconsult/backend/internal/textnorm"
)

func testEntries() []QA {
	return []QA{
		{Question: "Học phí một năm là bao nhiêu?", Answer: "Khoảng 10 triệu đồng", Source: "curated", Line: 1},
		{Question: "Ký túc xá có chỗ cho sinh viên năm nhất không?", Answer: "Có, đăng ký trước tháng 8", Source: "curated", Line: 2},
		{Question: "Điểm chuẩn ngành công nghệ thông tin?", Answer: "24.5 điểm năm 2024", Source: "curated", Line: 3},
	}
}

func TestFindBestMatch_ExactQuestion(t *testing.T) {
	m := New(testEntries(), textnorm.New(nil))

	match := m.FindBestMatch("Học phí một năm là bao nhiêu?", DefaultThreshold)
	require.NotNil(t, match)
	assert.Equal(t, "Khoảng 10 triệu đồng", match.Answer)
	assert.Equal(t, 1, match.Line)
	assert.InDelta(t, 1.0, match.Score, 1e-9)
}

func TestFindBestMatch_CloseVariant(t *testing.T) {
	m := New(testEntries(), textnorm.New(nil))

	match := m.FindBestMatch("học phí một năm bao nhiêu", DefaultThreshold)
	require.NotNil(t, match)
	assert.Equal(t, "Khoảng 10 triệu đồng", match.Answer)
	assert.GreaterOrEqual(t, match.Score, DefaultThreshold)
}

func TestFindBestMatch_BelowThreshold(t *testing.T) {
	m := New(testEntries(), textnorm.New(nil))

	// One shared keyword ("năm") is not enough to clear the bar.
	assert.Nil(t, m.FindBestMatch("năm nay thời tiết thế nào", DefaultThreshold))
}

func TestFindBestMatch_NoKeywordOverlap(t *testing.T) {
	m := New(testEntries(), textnorm.New(nil))

	assert.Nil(t, m.FindBestMatch("xin chào bạn", DefaultThreshold))
	assert.Nil(t, m.FindBestMatch("", DefaultThreshold))
}

func TestFindBestMatch_FirstSeenWinsOnTie(t *testing.T) {
	entries := []QA{
		{Question: "giờ mở cửa thư viện", Answer: "đầu tiên", Line: 1},
		{Question: "giờ mở cửa thư viện", Answer: "thứ hai", Line: 2},
	}
	m := New(entries, textnorm.New(nil))

	match := m.FindBestMatch("giờ mở cửa thư viện", DefaultThreshold)
	require.NotNil(t, match)
	assert.Equal(t, "đầu tiên", match.Answer)
	assert.Equal(t, 1, match.Line)
}

func TestFindBestMatch_EmptyList(t *testing.T) {
	m := New(nil, textnorm.New(nil))
	assert.Nil(t, m.FindBestMatch("học phí là bao nhiêu", DefaultThreshold))
}

func TestSequenceSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, sequenceSimilarity("học phí", "học phí"), 1e-9)
	assert.Equal(t, 0.0, sequenceSimilarity("", "học phí"))
	assert.Equal(t, 0.0, sequenceSimilarity("abc", ""))

	// "ab" vs "ba": LCS is one rune.
	assert.InDelta(t, 0.5, sequenceSimilarity("ab", "ba"), 1e-9)
}
