// Package taskstore keeps the tasks of every scrape so that history
// outlives the page cache.
package taskstore

import (
	"context"
	"database/sql"
	"time"

	"boincstats/lib/boinc"
	"boincstats/lib/taskstore/db"
)

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Migrate creates the tables of the store if they are missing.
func (s Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, db.Schema)
	return err
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}

// Push upserts tasks, a task is identified by its site and name.
func (s Store) Push(ctx context.Context, now time.Time, tasks []boinc.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	for _, t := range tasks {
		err := txqry.UpsertTask(ctx, db.Task{
			Site:         t.Site,
			Name:         t.Name,
			Project:      t.Project,
			ProjectShort: t.ProjectShort,
			Application:  t.Application,
			Workunit:     t.Workunit,
			Device:       t.Device,
			State:        t.State,
			Sent:         unixOrZero(t.Sent),
			Deadline:     unixOrZero(t.Deadline),
			RunTime:      t.RunTime.Seconds(),
			CpuTime:      t.CPUTime.Seconds(),
			Credit:       t.Credit,
			UpdatedAt:    now.Unix(),
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Tasks returns the stored tasks of a site, oldest first.
func (s Store) Tasks(ctx context.Context, site string) ([]boinc.Task, error) {
	rows, err := s.qry.GetTasks(ctx, site)
	if err != nil {
		return nil, err
	}
	tasks := make([]boinc.Task, len(rows))
	for i, r := range rows {
		tasks[i] = boinc.Task{
			Site:         r.Site,
			Project:      r.Project,
			ProjectShort: r.ProjectShort,
			Application:  r.Application,
			Name:         r.Name,
			Workunit:     r.Workunit,
			Device:       r.Device,
			State:        r.State,
			Sent:         timeOrZero(r.Sent),
			Deadline:     timeOrZero(r.Deadline),
			RunTime:      seconds(r.RunTime),
			CPUTime:      seconds(r.CpuTime),
			Credit:       r.Credit,
		}
	}
	return tasks, nil
}

type ProjectCredit struct {
	Project string
	Tasks   int
	Credit  float64
	RunTime time.Duration
}

// CreditByProject sums the stored tasks per project, most credit first.
func (s Store) CreditByProject(ctx context.Context) ([]ProjectCredit, error) {
	rows, err := s.qry.GetCreditByProject(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectCredit, len(rows))
	for i, r := range rows {
		out[i] = ProjectCredit{
			Project: r.Project,
			Tasks:   int(r.Tasks),
			Credit:  r.Credit,
			RunTime: seconds(r.RunTime),
		}
	}
	return out, nil
}
