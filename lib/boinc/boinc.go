// Package boinc is the data model shared by the site scrapers: tasks,
// badges and the per project statistics derived from them.
package boinc

import (
	"fmt"
	"time"
)

// Task is a single result (work unit replica) a host computed for a project.
type Task struct {
	// Site is the name of the site the task was scraped from.
	Site         string
	Project      string
	ProjectShort string
	Application  string
	Name         string
	Workunit     string
	Device       string
	// State is a label of the StateSet the task was indexed into.
	State    string
	Sent     time.Time
	Deadline time.Time
	RunTime  time.Duration
	CPUTime  time.Duration
	Credit   float64
}

// Badge is an award image shown on a user's profile.
type Badge struct {
	Project string
	Name    string
	URL     string
}

// Statistics are the totals of a project, either reported by the site or
// computed from its tasks.
type Statistics struct {
	Credit  float64
	RunTime time.Duration
	CPUTime time.Duration
	Results int
	// States counts tasks per state label.
	States map[string]int
}

type Project struct {
	Name      string
	ShortName string
	URL       string
	Tasks     []Task
	Badges    []Badge
	// Reported holds the totals published by the site itself, if any.
	Reported *Statistics
}

// Statistics computes the totals of the tasks of the project.
func (p Project) Statistics() Statistics {
	stats := Statistics{States: map[string]int{}}
	for _, t := range p.Tasks {
		stats.Credit += t.Credit
		stats.RunTime += t.RunTime
		stats.CPUTime += t.CPUTime
		stats.Results++
		if t.State != "" {
			stats.States[t.State]++
		}
	}
	return stats
}

// FormatDuration renders a duration as hours:minutes:seconds, the hours
// are not wrapped into days.
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Round(time.Second)
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	return fmt.Sprintf("%s%d:%02d:%02d", sign, hours, minutes, seconds)
}

// Harvest is everything one site pipeline extracted in a run.
type Harvest struct {
	Site     string
	Projects []Project
	Tasks    []Task
	Badges   []Badge
}
