package main

import (
	"context"
	"fmt"

	"github.com/chuoapp/chuo/core/grading"
)

func (cli *commandLine) activateSemester(id string) error {
	sem, err := cli.academicSvc.Activate(context.Background(), id)
	if err != nil {
		return err
	}
	fmt.Printf("semester %s (%s) is now current\n", sem.Name, sem.ID)
	return nil
}

// loadScale installs the default grading scale.
func (cli *commandLine) loadScale() error {
	return cli.gradingSvc.ReplaceScale(context.Background(), grading.DefaultScale())
}
