// Package smalltalk short-circuits conversational utterances (greetings,
// thanks, goodbyes) so they never reach retrieval or the cache.
package smalltalk

import (
	"strings"

	"github.com/uniconsult/backend/internal/textnorm"
)

type pattern struct {
	phrases  []string
	response string
}

// Classifier matches normalized queries against canned conversational
// intents. Read-only after construction.
type Classifier struct {
	norm     *textnorm.Normalizer
	patterns []pattern
}

func New(norm *textnorm.Normalizer) *Classifier {
	return &Classifier{
		norm: norm,
		patterns: []pattern{
			{
				phrases:  []string{"xin chào", "chào bạn", "chào", "hello", "hi", "alo"},
				response: "Chào bạn! Mình là trợ lý tư vấn sinh viên. Bạn cần hỗ trợ thông tin gì hôm nay?",
			},
			{
				phrases:  []string{"cảm ơn", "cám ơn", "thank you", "thanks"},
				response: "Không có gì! Nếu bạn còn câu hỏi nào khác, cứ hỏi mình nhé.",
			},
			{
				phrases:  []string{"tạm biệt", "bye", "goodbye", "hẹn gặp lại"},
				response: "Tạm biệt bạn! Chúc bạn học tập tốt, hẹn gặp lại.",
			},
			{
				phrases:  []string{"bạn là ai", "bạn tên gì", "who are you"},
				response: "Mình là trợ lý ảo của phòng tư vấn sinh viên, hỗ trợ giải đáp các thắc mắc về học vụ, học phí và quy chế.",
			},
		},
	}
}

// Classify returns the canned response for a conversational query, or empty
// when the query should go through retrieval. Matching is exact on the
// normalized text for very short queries and prefix-based otherwise, so a
// real question that merely starts with a greeting still reaches retrieval.
func (c *Classifier) Classify(query string) string {
	normalized := c.norm.Normalize(query)
	if normalized == "" {
		return ""
	}
	plain := strings.ReplaceAll(normalized, "_", " ")

	for _, p := range c.patterns {
		for _, phrase := range p.phrases {
			if plain == phrase {
				return p.response
			}
			// Short utterances like "chào bạn nhé" still count as small talk.
			if strings.HasPrefix(plain, phrase) && len(strings.Fields(plain)) <= len(strings.Fields(phrase))+1 {
				return p.response
			}
		}
	}
	return ""
}
