package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/researchnest/backend/core/course"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ course.EnrollmentRepository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *sqlx.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, e course.Enrollment) (course.Enrollment, error) {
	e.CreatedAt = e.CreatedAt.UTC()
	q := `INSERT INTO course_enrollments (id, student_id, course_id, course_title, created_at)
		VALUES (:id, :student_id, :course_id, :course_title, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, e); err != nil {
		if isUniqueViolation(err) {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return e, nil
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, studentID string) ([]course.Enrollment, error) {
	enrollments := make([]course.Enrollment, 0)
	q := repo.db.Rebind(`SELECT id, student_id, course_id, course_title, created_at FROM course_enrollments
		WHERE student_id = ? ORDER BY created_at DESC, id ASC`)
	if err := repo.db.SelectContext(ctx, &enrollments, q, studentID); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	for i := range enrollments {
		enrollments[i].CreatedAt = enrollments[i].CreatedAt.UTC()
	}
	return enrollments, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, studentID, courseID string) (course.Enrollment, error) {
	var e course.Enrollment
	q := repo.db.Rebind(`SELECT id, student_id, course_id, course_title, created_at FROM course_enrollments
		WHERE student_id = ? AND course_id = ?`)
	if err := repo.db.GetContext(ctx, &e, q, studentID, courseID); err != nil {
		return course.Enrollment{}, trapNoRowsErr(err, course.ErrNotEnrolled, "selecting enrollment")
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

type progressRepository struct {
	db *sqlx.DB
}

var _ course.ProgressRepository = (*progressRepository)(nil)

func NewProgressRepository(db *sqlx.DB) *progressRepository {
	return &progressRepository{db: db}
}

// UpsertProgress relies on the (student_id, entity_type, entity_id) primary key: the last write wins.
func (repo *progressRepository) UpsertProgress(ctx context.Context, rec course.ProgressRecord) error {
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	q := `INSERT INTO student_progress (student_id, course_id, entity_type, entity_id, status, updated_at)
		VALUES (:student_id, :course_id, :entity_type, :entity_id, :status, :updated_at)
		ON CONFLICT (student_id, entity_type, entity_id) DO UPDATE SET
			status = excluded.status,
			course_id = excluded.course_id,
			updated_at = excluded.updated_at`
	if _, err := repo.db.NamedExecContext(ctx, q, rec); err != nil {
		return errors.Wrap(err, "upserting progress")
	}
	return nil
}

func (repo *progressRepository) QueryProgress(ctx context.Context, studentID, courseID string) ([]course.ProgressRecord, error) {
	records := make([]course.ProgressRecord, 0)
	q := repo.db.Rebind(`SELECT student_id, course_id, entity_type, entity_id, status, updated_at FROM student_progress
		WHERE student_id = ? AND course_id = ? ORDER BY entity_id`)
	if err := repo.db.SelectContext(ctx, &records, q, studentID, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting progress")
	}
	return records, nil
}
