package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"Ballot/internal/core/votes"
)

// maxInParams bounds the number of identifiers bound into one IN list
const maxInParams = 500

const voteColumns = `id, voter_type, voter_id, subject_type, subject_id, magnitude, created_at, updated_at`

type voteRepo struct {
	q          querier
	d          dialect
	table      string
	idStrategy string
}

func (r *voteRepo) query(q string) string {
	return r.d.rebind(strings.ReplaceAll(q, "{table}", r.table))
}

func signClause(sign votes.Sign) string {
	switch sign {
	case votes.Positive:
		return " AND magnitude > 0"
	case votes.Negative:
		return " AND magnitude < 0"
	default:
		return ""
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVote(row rowScanner) (*votes.Vote, error) {
	var (
		vote      votes.Vote
		createdAt dbTime
		updatedAt dbTime
	)
	err := row.Scan(
		&vote.ID, &vote.VoterType, &vote.VoterID,
		&vote.SubjectType, &vote.SubjectID, &vote.Magnitude,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	vote.CreatedAt = createdAt.Time
	vote.UpdatedAt = updatedAt.Time
	return &vote, nil
}

// GetByVoterAndSubject retrieves the vote of a voter on a subject
func (r *voteRepo) GetByVoterAndSubject(ctx context.Context, voter, subject votes.Ref, forUpdate bool) (*votes.Vote, error) {
	query := `
		SELECT ` + voteColumns + `
		FROM {table}
		WHERE voter_type = ? AND voter_id = ? AND subject_type = ? AND subject_id = ?`
	if forUpdate {
		query += r.d.lockSuffix()
	}

	vote, err := scanVote(r.q.QueryRowContext(ctx, r.query(query),
		voter.Type, voter.ID, subject.Type, subject.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, votes.ErrVoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote by voter and subject: %w", err)
	}
	return vote, nil
}

// Create inserts a new vote
// A unique violation on (voter, subject) maps to ErrVoteAlreadyExists so the
// caller can retry the write as an update
func (r *voteRepo) Create(ctx context.Context, vote *votes.Vote) error {
	if vote.Magnitude == 0 {
		return votes.ErrInvalidMagnitude
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	args := []any{
		vote.VoterType, vote.VoterID,
		vote.SubjectType, vote.SubjectID, vote.Magnitude,
		r.d.timeValue(now), r.d.timeValue(now),
	}

	var err error
	if r.idStrategy == IDUUID {
		id, genErr := uuid.NewV7()
		if genErr != nil {
			return fmt.Errorf("failed to generate vote id: %w", genErr)
		}
		_, err = r.q.ExecContext(ctx, r.query(`
			INSERT INTO {table} (
				id, voter_type, voter_id,
				subject_type, subject_id, magnitude,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			append([]any{id.String()}, args...)...)
		if err == nil {
			vote.ID = id.String()
		}
	} else {
		err = r.q.QueryRowContext(ctx, r.query(`
			INSERT INTO {table} (
				voter_type, voter_id,
				subject_type, subject_id, magnitude,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`),
			args...).Scan(&vote.ID)
	}

	if err != nil {
		if r.d.isUniqueViolation(err) {
			return votes.ErrVoteAlreadyExists
		}
		return fmt.Errorf("failed to insert vote: %w", err)
	}

	vote.CreatedAt = now
	vote.UpdatedAt = now
	return nil
}

// UpdateMagnitude rewrites the magnitude of an existing vote
func (r *voteRepo) UpdateMagnitude(ctx context.Context, vote *votes.Vote) error {
	if vote.Magnitude == 0 {
		return votes.ErrInvalidMagnitude
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	result, err := r.q.ExecContext(ctx, r.query(`
		UPDATE {table}
		SET magnitude = ?, updated_at = ?
		WHERE voter_type = ? AND voter_id = ? AND subject_type = ? AND subject_id = ?`),
		vote.Magnitude, r.d.timeValue(now),
		vote.VoterType, vote.VoterID, vote.SubjectType, vote.SubjectID,
	)
	if err != nil {
		return fmt.Errorf("failed to update vote: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rowsAffected == 0 {
		return votes.ErrVoteNotFound
	}

	vote.UpdatedAt = now
	return nil
}

// Delete removes the vote of a voter on a subject
func (r *voteRepo) Delete(ctx context.Context, voter, subject votes.Ref) error {
	result, err := r.q.ExecContext(ctx, r.query(`
		DELETE FROM {table}
		WHERE voter_type = ? AND voter_id = ? AND subject_type = ? AND subject_id = ?`),
		voter.Type, voter.ID, subject.Type, subject.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rowsAffected == 0 {
		return votes.ErrVoteNotFound
	}
	return nil
}

func (r *voteRepo) list(ctx context.Context, where string, args []any, q votes.ListQuery) ([]*votes.Vote, error) {
	query := `SELECT ` + voteColumns + ` FROM {table} WHERE ` + where + signClause(q.Sign) +
		` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, q.Offset)
	}

	rows, err := r.q.QueryContext(ctx, r.query(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*votes.Vote
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		result = append(result, vote)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return result, nil
}

// ListByVoter retrieves the votes cast by a voter
func (r *voteRepo) ListByVoter(ctx context.Context, voter votes.Ref, q votes.ListQuery) ([]*votes.Vote, error) {
	where := `voter_type = ? AND voter_id = ?`
	args := []any{voter.Type, voter.ID}
	if q.SubjectType != "" {
		where += ` AND subject_type = ?`
		args = append(args, q.SubjectType)
	}
	return r.list(ctx, where, args, q)
}

// ListBySubject retrieves the votes cast on a subject
func (r *voteRepo) ListBySubject(ctx context.Context, subject votes.Ref, q votes.ListQuery) ([]*votes.Vote, error) {
	where := `subject_type = ? AND subject_id = ?`
	args := []any{subject.Type, subject.ID}
	if q.VoterType != "" {
		where += ` AND voter_type = ?`
		args = append(args, q.VoterType)
	}
	return r.list(ctx, where, args, q)
}

// Exists reports whether a voter has a vote of the given sign on a subject
func (r *voteRepo) Exists(ctx context.Context, voter, subject votes.Ref, sign votes.Sign) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, r.query(`
		SELECT EXISTS (
			SELECT 1 FROM {table}
			WHERE voter_type = ? AND voter_id = ? AND subject_type = ? AND subject_id = ?`+signClause(sign)+`
		)`),
		voter.Type, voter.ID, subject.Type, subject.ID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check vote existence: %w", err)
	}
	return exists, nil
}

// Count returns the number of votes of the given sign on a subject
func (r *voteRepo) Count(ctx context.Context, subject votes.Ref, sign votes.Sign) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, r.query(`
		SELECT COUNT(*) FROM {table}
		WHERE subject_type = ? AND subject_id = ?`+signClause(sign)),
		subject.Type, subject.ID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

// Sum returns the sum of magnitudes of the given sign on a subject.
// No votes sum to zero.
func (r *voteRepo) Sum(ctx context.Context, subject votes.Ref, sign votes.Sign) (int64, error) {
	var sum int64
	err := r.q.QueryRowContext(ctx, r.query(`
		SELECT CAST(COALESCE(SUM(magnitude), 0) AS BIGINT) FROM {table}
		WHERE subject_type = ? AND subject_id = ?`+signClause(sign)),
		subject.Type, subject.ID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum votes: %w", err)
	}
	return sum, nil
}

// CountBySubjects counts votes for many subjects in grouped queries
func (r *voteRepo) CountBySubjects(ctx context.Context, subjectType string, subjectIDs []string, sign votes.Sign) (map[string]int64, error) {
	return r.groupBySubject(ctx, `COUNT(*)`, subjectType, subjectIDs, sign)
}

// SumBySubjects sums magnitudes for many subjects in grouped queries
func (r *voteRepo) SumBySubjects(ctx context.Context, subjectType string, subjectIDs []string, sign votes.Sign) (map[string]int64, error) {
	return r.groupBySubject(ctx, `CAST(COALESCE(SUM(magnitude), 0) AS BIGINT)`, subjectType, subjectIDs, sign)
}

func (r *voteRepo) groupBySubject(ctx context.Context, expr, subjectType string, subjectIDs []string, sign votes.Sign) (map[string]int64, error) {
	result := make(map[string]int64, len(subjectIDs))

	for _, chunk := range chunkIDs(subjectIDs) {
		args := make([]any, 0, len(chunk)+1)
		args = append(args, subjectType)
		for _, id := range chunk {
			args = append(args, id)
		}

		rows, err := r.q.QueryContext(ctx, r.query(`
			SELECT subject_id, `+expr+` FROM {table}
			WHERE subject_type = ? AND subject_id IN (`+placeholders(len(chunk))+`)`+signClause(sign)+`
			GROUP BY subject_id`),
			args...)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate votes: %w", err)
		}

		for rows.Next() {
			var (
				id    string
				value int64
			)
			if err := rows.Scan(&id, &value); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan aggregate: %w", err)
			}
			result[id] = value
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("error iterating aggregates: %w", err)
		}
	}

	return result, nil
}

// VotedSubjectIDs returns the subset of subjectIDs a voter has voted on
func (r *voteRepo) VotedSubjectIDs(ctx context.Context, voter votes.Ref, subjectType string, subjectIDs []string, sign votes.Sign) (map[string]bool, error) {
	result := make(map[string]bool)

	for _, chunk := range chunkIDs(subjectIDs) {
		args := make([]any, 0, len(chunk)+3)
		args = append(args, voter.Type, voter.ID, subjectType)
		for _, id := range chunk {
			args = append(args, id)
		}

		rows, err := r.q.QueryContext(ctx, r.query(`
			SELECT DISTINCT subject_id FROM {table}
			WHERE voter_type = ? AND voter_id = ? AND subject_type = ?
			AND subject_id IN (`+placeholders(len(chunk))+`)`+signClause(sign)),
			args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query voted subjects: %w", err)
		}

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan subject id: %w", err)
			}
			result[id] = true
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("error iterating voted subjects: %w", err)
		}
	}

	return result, nil
}

func chunkIDs(ids []string) [][]string {
	var chunks [][]string
	for len(ids) > maxInParams {
		chunks = append(chunks, ids[:maxInParams])
		ids = ids[maxInParams:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
