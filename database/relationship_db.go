package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// insertBatchSize keeps multi-row inserts well below sqlite's bound parameter limit.
const insertBatchSize = 100

// ErrStaleEpoch is returned when rows computed before the last invalidation
// are written back.
var ErrStaleEpoch = errors.New("materialized relationships were invalidated")

// Relationship is a materialized computed relation. It is a cache of engine
// output and is rebuilt, never edited.
type Relationship struct {
	FromSerNo       int64   `json:"fromSerNo"`
	ToSerNo         int64   `json:"toSerNo"`
	Relation        string  `json:"relation"`
	RelationMarathi *string `json:"relationMarathi"`
	Generation      int     `json:"generation"`
	RunID           string  `json:"runId"`
	CreatedAt       int64   `json:"createdAt"`
}

// RelationshipEpoch returns the invalidation counter of the store. Writers
// read it before computing and hand it back to ReplaceRelationshipsFor.
func RelationshipEpoch(db *sql.DB) (int64, error) {
	return readEpoch(db)
}

type queryRower interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func readEpoch(q queryRower) (int64, error) {
	sqlStr, args, err := psql.Select("epoch").From("relationship_epoch").Where(sq.Eq{"id": 1}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL for relationship epoch: %w", err)
	}
	var epoch int64
	if err := q.QueryRow(sqlStr, args...).Scan(&epoch); err != nil {
		return 0, fmt.Errorf("failed to read relationship epoch: %w", err)
	}
	return epoch, nil
}

// ReplaceRelationshipsFor swaps every stored row of fromSerNo for rows in one
// transaction. The write is refused with ErrStaleEpoch when the store was
// invalidated after epoch was read.
func ReplaceRelationshipsFor(db *sql.DB, fromSerNo int64, epoch int64, rows []Relationship) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for member %d: %w", fromSerNo, err)
	}
	defer tx.Rollback()

	current, err := readEpoch(tx)
	if err != nil {
		return err
	}
	if current != epoch {
		return fmt.Errorf("member %d computed at epoch %d, store is at %d: %w", fromSerNo, epoch, current, ErrStaleEpoch)
	}

	delSQL, delArgs, err := psql.Delete("relationships").Where(sq.Eq{"from_ser_no": fromSerNo}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL for ReplaceRelationshipsFor delete: %w", err)
	}
	if _, err := tx.Exec(delSQL, delArgs...); err != nil {
		return fmt.Errorf("failed to clear relationships of member %d: %w", fromSerNo, err)
	}

	now := time.Now().Unix()
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		queryBuilder := psql.Insert("relationships").
			Columns("from_ser_no", "to_ser_no", "relation", "relation_marathi", "generation", "run_id", "created_at")
		for _, r := range rows[start:end] {
			createdAt := r.CreatedAt
			if createdAt == 0 {
				createdAt = now
			}
			queryBuilder = queryBuilder.Values(fromSerNo, r.ToSerNo, r.Relation, r.RelationMarathi, r.Generation, r.RunID, createdAt)
		}
		sqlStr, args, err := queryBuilder.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build SQL for ReplaceRelationshipsFor insert: %w", err)
		}
		if _, err := tx.Exec(sqlStr, args...); err != nil {
			return fmt.Errorf("failed to insert relationships of member %d: %w", fromSerNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit relationships of member %d: %w", fromSerNo, err)
	}
	return nil
}

// ListRelationships returns materialized rows ordered by from and to serNo.
// A zero fromSerNo lists every member.
func ListRelationships(db *sql.DB, fromSerNo int64) ([]Relationship, error) {
	queryBuilder := psql.Select("from_ser_no", "to_ser_no", "relation", "relation_marathi", "generation", "run_id", "created_at").
		From("relationships").
		OrderBy("from_ser_no ASC", "to_ser_no ASC")
	if fromSerNo != 0 {
		queryBuilder = queryBuilder.Where(sq.Eq{"from_ser_no": fromSerNo})
	}
	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListRelationships: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListRelationships query: %w", err)
	}
	defer rows.Close()

	out := []Relationship{}
	for rows.Next() {
		var r Relationship
		var marathi sql.NullString
		if err := rows.Scan(&r.FromSerNo, &r.ToSerNo, &r.Relation, &marathi, &r.Generation, &r.RunID, &r.CreatedAt); err != nil {
			log.Printf("Error scanning relationship row: %v", err)
			continue
		}
		if marathi.Valid {
			mr := marathi.String
			r.RelationMarathi = &mr
		}
		out = append(out, r)
	}
	if err = rows.Err(); err != nil {
		return out, fmt.Errorf("error iterating relationship rows: %w", err)
	}
	return out, nil
}

// CountRelationships returns the number of materialized rows.
func CountRelationships(db *sql.DB) (int64, error) {
	sqlStr, args, err := psql.Select("COUNT(*)").From("relationships").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL for CountRelationships: %w", err)
	}
	var n int64
	if err := db.QueryRow(sqlStr, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count relationships: %w", err)
	}
	return n, nil
}

// ListRelationshipTypes returns the distinct English labels in natural order.
func ListRelationshipTypes(db *sql.DB) ([]string, error) {
	sqlStr, args, err := psql.Select("DISTINCT relation").From("relationships").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for ListRelationshipTypes: %w", err)
	}
	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute ListRelationshipTypes query: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan relationship type: %w", err)
		}
		labels = append(labels, label)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationship types: %w", err)
	}
	SortLabels(labels)
	return labels, nil
}

// DeleteAllRelationships drops every materialized row, advances the epoch so
// writes computed earlier are refused, and reports how many rows were removed.
func DeleteAllRelationships(db *sql.DB) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction for DeleteAllRelationships: %w", err)
	}
	defer tx.Rollback()

	epochSQL, epochArgs, err := psql.Update("relationship_epoch").
		Set("epoch", sq.Expr("epoch + 1")).
		Where(sq.Eq{"id": 1}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL for relationship epoch update: %w", err)
	}
	if _, err := tx.Exec(epochSQL, epochArgs...); err != nil {
		return 0, fmt.Errorf("failed to advance relationship epoch: %w", err)
	}

	sqlStr, args, err := psql.Delete("relationships").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL for DeleteAllRelationships: %w", err)
	}
	result, err := tx.Exec(sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete relationships: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit DeleteAllRelationships: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		log.Printf("Warning: Could not get RowsAffected for DeleteAllRelationships: %v", err)
		return 0, nil
	}
	return n, nil
}
