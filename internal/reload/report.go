package reload

import (
	"sort"
	"sync"
	"time"
)

// Problem is one non-fatal data quality finding tied to a facility id.
type Problem struct {
	FacilityID  string `json:"facility_id"`
	Description string `json:"description"`
}

// Timing brackets a reconciliation run. CompleteCollection is the shared
// "now" for every lifecycle decision in the run.
type Timing struct {
	Start              time.Time `json:"start"`
	CompleteCollection time.Time `json:"complete_collection"`
	Complete           time.Time `json:"complete"`
}

// Report accumulates the outcome of one reconciliation run. It is mutated
// concurrently by per-facility workers during the run and must not be
// modified once the run ends; the finished report is the run's audit
// artifact and HTTP response body.
type Report struct {
	mu sync.Mutex

	TotalFacilities   int       `json:"total_facilities"`
	FacilitiesCreated []string  `json:"facilities_created"`
	FacilitiesUpdated []string  `json:"facilities_updated"`
	FacilitiesMissing []string  `json:"facilities_missing"`
	FacilitiesRevived []string  `json:"facilities_revived"`
	FacilitiesRemoved []string  `json:"facilities_removed"`
	Problems          []Problem `json:"problems"`
	Timing            Timing    `json:"timing"`
}

// StartReport begins a report at the given instant.
func StartReport(start time.Time) *Report {
	return &Report{Timing: Timing{Start: start}}
}

func (r *Report) MarkCompleteCollection(t time.Time) {
	r.Timing.CompleteCollection = t
}

func (r *Report) MarkComplete(t time.Time) {
	r.Timing.Complete = t
	r.sortLists()
}

func (r *Report) AddCreated(id string) { r.appendTo(&r.FacilitiesCreated, id) }
func (r *Report) AddUpdated(id string) { r.appendTo(&r.FacilitiesUpdated, id) }
func (r *Report) AddMissing(id string) { r.appendTo(&r.FacilitiesMissing, id) }
func (r *Report) AddRevived(id string) { r.appendTo(&r.FacilitiesRevived, id) }
func (r *Report) AddRemoved(id string) { r.appendTo(&r.FacilitiesRemoved, id) }

// AddProblem records one data quality finding.
func (r *Report) AddProblem(facilityID, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Problems = append(r.Problems, Problem{FacilityID: facilityID, Description: description})
}

// AddProblems records a batch of findings.
func (r *Report) AddProblems(problems []Problem) {
	if len(problems) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Problems = append(r.Problems, problems...)
}

func (r *Report) appendTo(list *[]string, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	*list = append(*list, id)
}

// sortLists orders every id list so reports are deterministic regardless of
// worker scheduling.
func (r *Report) sortLists() {
	r.mu.Lock()
	defer r.mu.Unlock()
	sort.Strings(r.FacilitiesCreated)
	sort.Strings(r.FacilitiesUpdated)
	sort.Strings(r.FacilitiesMissing)
	sort.Strings(r.FacilitiesRevived)
	sort.Strings(r.FacilitiesRemoved)
	sort.Slice(r.Problems, func(i, j int) bool {
		if r.Problems[i].FacilityID != r.Problems[j].FacilityID {
			return r.Problems[i].FacilityID < r.Problems[j].FacilityID
		}
		return r.Problems[i].Description < r.Problems[j].Description
	})
}
