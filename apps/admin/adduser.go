package main

import (
	"context"
	"fmt"

	"github.com/researchnest/backend/core/user"
)

// addUser updates or creates a user.User, ADMIN role allowed.
func (cli *commandLine) addUser(data user.UpsertUser) error {
	if err := data.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Upsert(context.Background(), data)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%s %s <%s> saved\n", usr.Role, usr.FullName, usr.Email)
	return nil
}
