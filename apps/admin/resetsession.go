package main

import (
	"context"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
)

// resetSession forcibly clears the actor's live session token so they can
// log in again, e.g. after a crashed client left a session open.
func (cli *commandLine) resetSession(uname string) error {
	ctx := context.Background()
	act, err := cli.actorRepo.GetActor(ctx, actor.GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
	if err != nil {
		return err
	}
	return cli.gate.Release(ctx, act)
}
