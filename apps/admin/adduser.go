package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/user"
)

// addUser creates a user.User; it fails if the username or email is taken.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	nu := user.NewUser{
		Name:            uname,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if isAdmin {
		nu.Roles = user.AllRoles
	}
	if err := nu.Validate(cli.usrSvc); err != nil {
		return err
	}

	_, err := cli.usrSvc.Create(ctx, nu)
	return errors.Wrap(err, "creating user")
}
