package inmemdb

import (
	"sync"

	"github.com/trezcool/maabara/core/actor"
	"github.com/trezcool/maabara/core/event"
	"github.com/trezcool/maabara/core/exam"
)

type (
	DB struct {
		actor *actorTable
		event *eventTable
		exam  *examTable
	}

	actorTable struct {
		table map[string]*actor.Actor
		mutex sync.RWMutex
	}

	eventTable struct {
		rows  []event.Event
		mutex sync.RWMutex
	}

	examTable struct {
		exams    map[string]*exam.Exam
		attempts map[string]*exam.Attempt
		mutex    sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		actor: &actorTable{table: make(map[string]*actor.Actor)},
		event: &eventTable{rows: make([]event.Event, 0)},
		exam: &examTable{
			exams:    make(map[string]*exam.Exam),
			attempts: make(map[string]*exam.Attempt),
		},
	}
	return db, nil
}
