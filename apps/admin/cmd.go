package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/maabara/core/actor"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	actorRepo actor.Repository
	gate      *actor.Gate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate up|down|status|... - run database migrations")
	fmt.Println("  addactor -username USERNAME [-email EMAIL] [-name NAME] [-batch BATCH] [-admin] [-teacher] - update or create an actor")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset actor's password")
	fmt.Println("  resetsession -username USERNAME|EMAIL - clear actor's live session token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addActorCmd := flag.NewFlagSet("addactor", flag.ExitOnError)
	addActorUname := addActorCmd.String("username", "", "The actor's username. The password will be prompted next.")
	addActorEmail := addActorCmd.String("email", "", "The actor's email.")
	addActorName := addActorCmd.String("name", "", "The actor's full name.")
	addActorBatch := addActorCmd.String("batch", "", "The student's intake batch, e.g. 2026a.")
	addActorIsAdmin := addActorCmd.Bool("admin", false, "Grant all roles.")
	addActorIsTeacher := addActorCmd.Bool("teacher", false, "Grant the teacher role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The actor's username or email. The password will be prompted next.")

	resetSessionCmd := flag.NewFlagSet("resetsession", flag.ExitOnError)
	resetSessionUname := resetSessionCmd.String("username", "", "The actor's username or email.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addactor":
		if err := addActorCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addActorUname == "" {
			addActorCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				addActorCmd.Usage()
			}
			return err
		}
		return cli.addActor(
			*addActorUname, *addActorEmail, *addActorName, *addActorBatch, pwd,
			*addActorIsAdmin, *addActorIsTeacher,
		)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			if err == errHelp {
				resetPasswordCmd.Usage()
			}
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "resetsession":
		if err := resetSessionCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetSessionUname == "" {
			resetSessionCmd.Usage()
			return errHelp
		}
		return cli.resetSession(*resetSessionUname)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errHelp
	}
	return string(pwd), nil
}
