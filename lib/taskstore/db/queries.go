package db

import (
	"context"
)

type Task struct {
	Site         string
	Name         string
	Project      string
	ProjectShort string
	Application  string
	Workunit     string
	Device       string
	State        string
	Sent         int64
	Deadline     int64
	RunTime      float64
	CpuTime      float64
	Credit       float64
	UpdatedAt    int64
}

const upsertTask = `
insert into task (
    site, name, project, project_short, application, workunit, device,
    state, sent, deadline, run_time, cpu_time, credit, updated_at
) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (site, name) do update set
    project = excluded.project,
    project_short = excluded.project_short,
    application = excluded.application,
    workunit = excluded.workunit,
    device = excluded.device,
    state = excluded.state,
    sent = excluded.sent,
    deadline = excluded.deadline,
    run_time = excluded.run_time,
    cpu_time = excluded.cpu_time,
    credit = excluded.credit,
    updated_at = excluded.updated_at
`

func (q *Queries) UpsertTask(ctx context.Context, arg Task) error {
	_, err := q.db.ExecContext(ctx, upsertTask,
		arg.Site,
		arg.Name,
		arg.Project,
		arg.ProjectShort,
		arg.Application,
		arg.Workunit,
		arg.Device,
		arg.State,
		arg.Sent,
		arg.Deadline,
		arg.RunTime,
		arg.CpuTime,
		arg.Credit,
		arg.UpdatedAt,
	)
	return err
}

const getTasks = `
select site, name, project, project_short, application, workunit, device,
    state, sent, deadline, run_time, cpu_time, credit, updated_at
from task
where site = ?
order by sent, name
`

func (q *Queries) GetTasks(ctx context.Context, site string) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, getTasks, site)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Task
	for rows.Next() {
		var i Task
		if err := rows.Scan(
			&i.Site,
			&i.Name,
			&i.Project,
			&i.ProjectShort,
			&i.Application,
			&i.Workunit,
			&i.Device,
			&i.State,
			&i.Sent,
			&i.Deadline,
			&i.RunTime,
			&i.CpuTime,
			&i.Credit,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCreditByProject = `
select project, count(*), sum(credit), sum(run_time)
from task
group by project
order by sum(credit) desc, project
`

type GetCreditByProjectRow struct {
	Project string
	Tasks   int64
	Credit  float64
	RunTime float64
}

func (q *Queries) GetCreditByProject(ctx context.Context) ([]GetCreditByProjectRow, error) {
	rows, err := q.db.QueryContext(ctx, getCreditByProject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetCreditByProjectRow
	for rows.Next() {
		var i GetCreditByProjectRow
		if err := rows.Scan(&i.Project, &i.Tasks, &i.Credit, &i.RunTime); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
