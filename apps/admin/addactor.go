package main

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/maabara/core"
	"github.com/trezcool/maabara/core/actor"
)

// addActor updates or creates an actor.Actor
func (cli *commandLine) addActor(uname, email, name, batch, pwd string, isAdmin, isTeacher bool) error {
	var created bool
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	batch = core.CleanString(batch, true /* lower */)

	act, err := cli.actorRepo.GetActor(ctx, actor.GetFilter{UsernameOrEmail: uname})
	if err == actor.ErrNotFound && email != "" {
		act, err = cli.actorRepo.GetActor(ctx, actor.GetFilter{Email: email})
	}
	if err != nil {
		if err != actor.ErrNotFound {
			return err
		}
		now := actor.NowFunc().UTC()
		act = actor.Actor{
			ID:        uuid.New().String(),
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
		created = true
	}

	if name != "" {
		act.Name = core.CleanString(name)
	}
	if batch != "" {
		act.Batch = batch
	}
	switch {
	case isAdmin:
		act.Roles = actor.AllRoles
	case isTeacher:
		act.Roles = actor.TeacherRoles
	case act.Roles == nil:
		act.Roles = actor.StudentRoles
	}
	act.UpdatedAt = actor.NowFunc().UTC()
	act.SetActive(true)
	if err := act.SetPassword(pwd); err != nil {
		return err
	}

	if created {
		_, err = cli.actorRepo.CreateActor(ctx, act)
	} else {
		_, err = cli.actorRepo.UpdateActor(ctx, act)
	}
	return err
}
