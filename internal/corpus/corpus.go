// Package corpus merges the curated JSON Q&A export and the consultation
// database into one deduplicated corpus and tokenizes it for indexing.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/uniconsult/backend/internal/storage/models"
	"github.com/uniconsult/backend/internal/textnorm"
	"github.com/uniconsult/backend/pkg/logger"
)

const (
	SourceJSON  = "json"
	SourceMySQL = "mysql"
)

// Record is one question/answer pair of the corpus.
type Record struct {
	Question   string
	Answer     string
	Source     string
	QuestionID int64
	AnswerID   int64
}

// TokenizedRecord adds the segmented forms. Recomputed on every corpus
// build, never persisted on its own.
type TokenizedRecord struct {
	Record
	QuestionTokenized string
	AnswerTokenized   string
	Content           string
}

// QASource yields question/answer rows from the relational database.
type QASource interface {
	FetchQAPairs() ([]models.QAPair, error)
}

var whitespaceRE = regexp.MustCompile(`\s+`)

// LoadJSON reads the exported Q&A file: a JSON array of
// {"question": ..., "answer": ...} objects.
func LoadJSON(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read QA file: %w", err)
	}

	var raw []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse QA file: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for _, r := range raw {
		records = append(records, Record{
			Question: CleanText(r.Question),
			Answer:   CleanText(r.Answer),
			Source:   SourceJSON,
		})
	}

	logger.Info("JSON QA records loaded", zap.String("path", path), zap.Int("count", len(records)))
	return records, nil
}

// Build merges both sources into one corpus. Records with an empty question
// or answer are dropped; duplicate questions (same normalized text) collapse
// to the last one seen, so database rows override the JSON export.
func Build(jsonPath string, db QASource, norm *textnorm.Normalizer) ([]TokenizedRecord, error) {
	var merged []Record

	jsonRecords, err := LoadJSON(jsonPath)
	if err != nil {
		logger.Warn("JSON source unavailable", zap.Error(err))
	} else {
		merged = append(merged, jsonRecords...)
	}

	if db != nil {
		pairs, err := db.FetchQAPairs()
		if err != nil {
			logger.Warn("Database source unavailable", zap.Error(err))
		} else {
			for _, p := range pairs {
				merged = append(merged, Record{
					Question:   CleanText(p.Question),
					Answer:     CleanText(p.Answer),
					Source:     SourceMySQL,
					QuestionID: p.QuestionID,
					AnswerID:   p.AnswerID,
				})
			}
		}
	}

	deduped := Dedupe(merged, norm)

	tokenized := make([]TokenizedRecord, 0, len(deduped))
	for _, r := range deduped {
		qt := norm.Normalize(r.Question)
		at := norm.Normalize(r.Answer)
		tokenized = append(tokenized, TokenizedRecord{
			Record:            r,
			QuestionTokenized: qt,
			AnswerTokenized:   at,
			Content:           qt + " " + at,
		})
	}

	logger.Info("Corpus built",
		zap.Int("merged", len(merged)),
		zap.Int("retained", len(tokenized)),
	)

	return tokenized, nil
}

// Dedupe drops empty records and collapses duplicate questions,
// last-writer-wins, preserving first-seen position.
func Dedupe(records []Record, norm *textnorm.Normalizer) []Record {
	seen := make(map[string]int)
	var out []Record

	for _, r := range records {
		if strings.TrimSpace(r.Question) == "" || strings.TrimSpace(r.Answer) == "" {
			continue
		}
		key := norm.Normalize(r.Question)
		if key == "" {
			continue
		}
		if idx, ok := seen[key]; ok {
			out[idx] = r
			continue
		}
		seen[key] = len(out)
		out = append(out, r)
	}

	return out
}

// CleanText strips HTML markup and entity noise from stored content and
// collapses whitespace. Answers in the consultation database are rich text.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	if strings.Contains(text, "<") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err == nil {
			doc.Find("script, style").Each(func(i int, s *goquery.Selection) {
				s.Remove()
			})
			text = doc.Text()
		}
	}

	text = strings.ReplaceAll(text, " ", " ")
	text = whitespaceRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
