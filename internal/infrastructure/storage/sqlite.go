// Package storage provides SQLite persistence for articles and schedule state.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/domain"
	"github.com/ElijahTowers/QuartaPotestas-sub002/internal/ports"
)

const scheduleStateKey = "schedule_state"

// DB wraps the SQLite connection.
type DB struct {
	conn    *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.ArticleStore  = (*DB)(nil)
	_ ports.ScheduleStore = (*DB)(nil)
)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL keeps reads from blocking the single writer.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{
		conn:    conn,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_title TEXT NOT NULL,
		normalized_title TEXT NOT NULL UNIQUE,
		variants TEXT NOT NULL,
		topic_tags TEXT NOT NULL,
		sentiment TEXT NOT NULL,
		location_lat REAL,
		location_lon REAL,
		location_city TEXT,
		date DATETIME NOT NULL,
		published_at DATETIME,
		assistant_comment TEXT,
		audience_scores TEXT,
		image_ref TEXT,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// InsertArticle persists one enriched article. A normalized-title collision
// yields domain.ErrDuplicateTitle; any other failure wraps ErrStoreUnavailable.
func (db *DB) InsertArticle(ctx context.Context, article *domain.Article) (int64, error) {
	variants, err := json.Marshal(article.Variants)
	if err != nil {
		return 0, fmt.Errorf("marshal variants: %w", err)
	}
	tags, err := json.Marshal(article.TopicTags)
	if err != nil {
		return 0, fmt.Errorf("marshal tags: %w", err)
	}
	var scores any
	if article.AudienceScores != nil {
		raw, err := json.Marshal(article.AudienceScores)
		if err != nil {
			return 0, fmt.Errorf("marshal scores: %w", err)
		}
		scores = string(raw)
	}

	query, args, err := db.builder.
		Insert("articles").
		Options("OR IGNORE").
		Columns("original_title", "normalized_title", "variants", "topic_tags",
			"sentiment", "location_lat", "location_lon", "location_city",
			"date", "published_at", "assistant_comment", "audience_scores",
			"image_ref", "created_at").
		Values(article.OriginalTitle, domain.NormalizeTitle(article.OriginalTitle),
			string(variants), string(tags), article.Sentiment,
			article.LocationLat, article.LocationLon, article.LocationCity,
			article.Date, article.PublishedAt, article.AssistantComment,
			scores, article.ImageRef, article.CreatedAt).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: insert article: %v", domain.ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrDuplicateTitle, article.OriginalTitle)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	article.ID = id
	return id, nil
}

// HasTitle reports whether an article with the normalized title exists.
func (db *DB) HasTitle(ctx context.Context, normalizedTitle string) (bool, error) {
	query, args, err := db.builder.
		Select("COUNT(1)").
		From("articles").
		Where(sq.Eq{"normalized_title": normalizedTitle}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}
	var count int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("%w: has title: %v", domain.ErrStoreUnavailable, err)
	}
	return count > 0, nil
}

// ListArticles returns every persisted article, newest first.
func (db *DB) ListArticles(ctx context.Context) ([]domain.Article, error) {
	query, args, err := db.builder.
		Select("id", "original_title", "variants", "topic_tags", "sentiment",
			"location_lat", "location_lon", "location_city", "date",
			"published_at", "assistant_comment", "audience_scores",
			"image_ref", "created_at").
		From("articles").
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list articles: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var (
			a          domain.Article
			variants   string
			tags       string
			scores     sql.NullString
			published  sql.NullTime
			comment    sql.NullString
			imageRef   sql.NullString
			city       sql.NullString
			lat, lon   sql.NullFloat64
			date, crea time.Time
		)
		if err := rows.Scan(&a.ID, &a.OriginalTitle, &variants, &tags,
			&a.Sentiment, &lat, &lon, &city, &date, &published,
			&comment, &scores, &imageRef, &crea); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		if err := json.Unmarshal([]byte(variants), &a.Variants); err != nil {
			return nil, fmt.Errorf("unmarshal variants: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &a.TopicTags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
		if scores.Valid {
			if err := json.Unmarshal([]byte(scores.String), &a.AudienceScores); err != nil {
				return nil, fmt.Errorf("unmarshal scores: %w", err)
			}
		}
		a.Date = date
		a.CreatedAt = crea
		if published.Valid {
			t := published.Time
			a.PublishedAt = &t
		}
		if comment.Valid {
			s := comment.String
			a.AssistantComment = &s
		}
		if imageRef.Valid {
			s := imageRef.String
			a.ImageRef = &s
		}
		if city.Valid {
			s := city.String
			a.LocationCity = &s
		}
		if lat.Valid {
			v := lat.Float64
			a.LocationLat = &v
		}
		if lon.Valid {
			v := lon.Float64
			a.LocationLon = &v
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// DeleteAllArticles performs the administrative bulk reset.
func (db *DB) DeleteAllArticles(ctx context.Context) error {
	query, args, err := db.builder.Delete("articles").ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: delete articles: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// LoadSchedule returns the persisted schedule state, or nil when absent.
func (db *DB) LoadSchedule(ctx context.Context) (*domain.ScheduleState, error) {
	query, args, err := db.builder.
		Select("value").
		From("settings").
		Where(sq.Eq{"key": scheduleStateKey}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var raw string
	err = db.conn.QueryRowContext(ctx, query, args...).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load schedule: %v", domain.ErrStoreUnavailable, err)
	}
	var state domain.ScheduleState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("unmarshal schedule state: %w", err)
	}
	return &state, nil
}

// SaveSchedule upserts the schedule state snapshot.
func (db *DB) SaveSchedule(ctx context.Context, state *domain.ScheduleState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal schedule state: %w", err)
	}
	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		scheduleStateKey, string(raw))
	if err != nil {
		return fmt.Errorf("%w: save schedule: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}
