package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/researchnest/backend/core/course"
)

type enrollmentRepository struct {
	db *DB
}

var _ course.EnrollmentRepository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, e course.Enrollment) (course.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.courses[e.CourseID]; !ok {
		return course.Enrollment{}, course.ErrNotFound
	}
	for _, enr := range repo.db.enrollments {
		if enr.StudentID == e.StudentID && enr.CourseID == e.CourseID {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
	}
	repo.db.enrollments[e.ID] = e
	return e, nil
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, studentID string) ([]course.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrollments := make([]course.Enrollment, 0)
	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID {
			enrollments = append(enrollments, e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		if !enrollments[i].CreatedAt.Equal(enrollments[j].CreatedAt) {
			return enrollments[i].CreatedAt.After(enrollments[j].CreatedAt)
		}
		return enrollments[i].ID < enrollments[j].ID
	})
	return enrollments, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, studentID, courseID string) (course.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, e := range repo.db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e, nil
		}
	}
	return course.Enrollment{}, course.ErrNotEnrolled
}

type progressRepository struct {
	db *DB
}

var _ course.ProgressRepository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db}
}

func (repo *progressRepository) UpsertProgress(_ context.Context, rec course.ProgressRecord) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[rec.StudentID]; !ok {
		return errors.Errorf("student %q does not exist", rec.StudentID)
	}
	if _, ok := repo.db.courses[rec.CourseID]; !ok {
		return errors.Errorf("course %q does not exist", rec.CourseID)
	}
	repo.db.progress[progressKey{rec.StudentID, rec.EntityType, rec.EntityID}] = rec
	return nil
}

func (repo *progressRepository) QueryProgress(_ context.Context, studentID, courseID string) ([]course.ProgressRecord, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]course.ProgressRecord, 0)
	for key, rec := range repo.db.progress {
		if key.studentID == studentID && rec.CourseID == courseID {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].EntityID < records[j].EntityID })
	return records, nil
}
