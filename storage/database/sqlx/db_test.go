package sqlxrepos_test

import (
	"testing"

	sqlxrepos "github.com/researchnest/backend/storage/database/sqlx"
	"github.com/researchnest/backend/testutil"
)

func TestRepositories(t *testing.T) {
	testutil.RunRepositoryTests(t, func(t *testing.T) testutil.Repos {
		db := testutil.OpenDB(t)
		return testutil.Repos{
			Users:       sqlxrepos.NewUserRepository(db),
			Courses:     sqlxrepos.NewCourseRepository(db),
			Enrollments: sqlxrepos.NewEnrollmentRepository(db),
			Progress:    sqlxrepos.NewProgressRepository(db),
		}
	})
}
