package main

import (
	"context"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	act, err := cli.actorRepo.GetActor(ctx, actor.GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
	if err != nil {
		return err
	}
	if err := act.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.actorRepo.UpdateActor(ctx, act); err != nil {
		return err
	}
	return nil
}
