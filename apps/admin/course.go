package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/researchnest/backend/core/course"
)

// importCourse creates the course described by the YAML outline at path, owned by the faculty user ownerEmail.
func (cli *commandLine) importCourse(path, ownerEmail string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading outline")
	}
	var outline course.Outline
	if err = yaml.Unmarshal(data, &outline); err != nil {
		return errors.Wrap(err, "decoding outline")
	}
	if err = outline.Validate(cli.validate); err != nil {
		return err
	}

	ctx := context.Background()
	owner, err := cli.usrSvc.GetByEmail(ctx, ownerEmail)
	if err != nil {
		return err
	}
	c, err := cli.courseSvc.CreateCourse(ctx, owner, outline)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "course %q created: %s\n", c.Title, c.ID)
	return nil
}

// printProgress prints the tree of a course, rolled up for studentEmail when set.
func (cli *commandLine) printProgress(courseID, studentEmail string) error {
	ctx := context.Background()

	var tree *course.Tree
	if studentEmail == "" {
		var err error
		if tree, err = cli.courseSvc.CourseStructure(ctx, courseID); err != nil {
			return err
		}
	} else {
		student, err := cli.usrSvc.FindStudentByEmail(ctx, studentEmail)
		if err != nil {
			return err
		}
		if tree, err = cli.courseSvc.StudentTree(ctx, student.ID, courseID); err != nil {
			return err
		}
	}

	if err := tree.Fprint(cli.out); err != nil {
		return err
	}
	p := tree.Progress()
	_, err := fmt.Fprintf(cli.out, "\n%d/%d subtasks completed, %d in progress\n", p.Completed, p.Total, p.InProgress)
	return err
}
