package mysql

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/uniconsult/backend/internal/storage/models"
	"github.com/uniconsult/backend/pkg/logger"
)

// Client reads the consultation Q&A tables. The database is owned by the
// consultation web application; this process only ever selects from it.
type Client struct {
	db *sql.DB
}

func NewClient(dsn string) (*Client, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	db.SetMaxOpenConns(5)

	logger.Info("MySQL client initialized")

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// FetchQAPairs returns every non-deleted question joined to its answer.
// Questions without an answer are excluded; they carry no matchable content.
func (c *Client) FetchQAPairs() ([]models.QAPair, error) {
	query := `
		SELECT q.id, a.id, q.content, a.content
		FROM question q
		INNER JOIN answer a ON a.question_id = q.id
		WHERE q.status_delete = 0
		ORDER BY q.id ASC
	`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch QA pairs: %w", err)
	}
	defer rows.Close()

	var pairs []models.QAPair
	for rows.Next() {
		var p models.QAPair
		if err := rows.Scan(&p.QuestionID, &p.AnswerID, &p.Question, &p.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan QA row: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate QA rows: %w", err)
	}

	logger.Info("QA pairs fetched from MySQL", zap.Int("count", len(pairs)))

	return pairs, nil
}
