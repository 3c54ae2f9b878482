package jobs

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Sternrassler/xmatters-sync/pkg/pagination"
)

// Action names what a job did (or tried to do) with one item.
type Action string

const (
	ActionActivate  Action = "activate"
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionPlan      Action = "plan"
	ActionUnchanged Action = "unchanged"
	ActionSkip      Action = "skip"
	ActionReport    Action = "report"
	ActionWrite     Action = "write"
	ActionFetch     Action = "fetch"
)

// Item is the outcome for one record.
type Item struct {
	Key    string
	Action Action
	Err    error
}

// Report collects the per-item outcomes of a run.
type Report struct {
	Job      string
	RunID    string
	Started  time.Time
	Duration time.Duration

	// Fetched is the number of records listed from xMatters.
	Fetched int
	// PageErrors holds listing pages that could not be fetched.
	PageErrors []pagination.PageError

	mu    sync.Mutex
	items []Item
}

func newReport(job string, started time.Time) *Report {
	return &Report{Job: job, Started: started}
}

func (r *Report) add(key string, action Action, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Item{Key: key, Action: action, Err: err})
}

// Items returns a copy of the recorded items.
func (r *Report) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Item(nil), r.items...)
}

// Count returns the number of successful items with action.
func (r *Report) Count(action Action) int {
	n := 0
	for _, it := range r.Items() {
		if it.Action == action && it.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the items that carry an error.
func (r *Report) Failed() []Item {
	var out []Item
	for _, it := range r.Items() {
		if it.Err != nil {
			out = append(out, it)
		}
	}
	return out
}

// Err joins the errors of failed items and pages, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, pe := range r.PageErrors {
		errs = append(errs, pe)
	}
	for _, it := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s %s: %w", it.Action, it.Key, it.Err))
	}
	return errors.Join(errs...)
}

// Summary returns one row per action: action, ok, failed.
func (r *Report) Summary() [][]string {
	type counts struct{ ok, failed int }
	byAction := make(map[Action]*counts)
	for _, it := range r.Items() {
		c, ok := byAction[it.Action]
		if !ok {
			c = &counts{}
			byAction[it.Action] = c
		}
		if it.Err != nil {
			c.failed++
		} else {
			c.ok++
		}
	}

	actions := make([]string, 0, len(byAction))
	for a := range byAction {
		actions = append(actions, string(a))
	}
	sort.Strings(actions)

	out := make([][]string, 0, len(actions)+1)
	for _, a := range actions {
		c := byAction[Action(a)]
		out = append(out, []string{a, strconv.Itoa(c.ok), strconv.Itoa(c.failed)})
	}
	if len(r.PageErrors) > 0 {
		out = append(out, []string{"page", "0", strconv.Itoa(len(r.PageErrors))})
	}
	return out
}
