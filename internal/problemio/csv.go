// Package problemio imports problem data from external formats. CSV job
// lists are a common export from dispatch systems; they merge into a JSON
// problem document before solving.
package problemio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fleetopt/internal/model"
)

// AppendJobsCSV parses a CSV job list and appends the rows to doc.Jobs.
//
// The header row names the columns; recognized names are id, location_index,
// setup, service, delivery, pickup, priority, tw_start, tw_end, budget and
// pinned. Unknown columns are ignored. delivery and pickup hold one or more
// amounts separated by '|'.
func AppendJobsCSV(doc *model.ProblemDoc, r io.Reader) error {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read CSV header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["id"]; !ok {
		return fmt.Errorf("CSV header is missing the id column")
	}
	if _, ok := col["location_index"]; !ok {
		return fmt.Errorf("CSV header is missing the location_index column")
	}

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read CSV row: %w", err)
		}
		line++
		job, err := jobFromRecord(col, rec)
		if err != nil {
			return fmt.Errorf("CSV line %d: %w", line, err)
		}
		doc.Jobs = append(doc.Jobs, job)
	}
}

func jobFromRecord(col map[string]int, rec []string) (model.JobDoc, error) {
	get := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var job model.JobDoc
	id, err := strconv.ParseInt(get("id"), 10, 64)
	if err != nil {
		return job, fmt.Errorf("bad id %q", get("id"))
	}
	loc, err := strconv.Atoi(get("location_index"))
	if err != nil {
		return job, fmt.Errorf("bad location_index %q", get("location_index"))
	}
	job.ID = id
	job.LocationIndex = loc

	if v := get("setup"); v != "" {
		if job.Setup, err = strconv.ParseInt(v, 10, 64); err != nil {
			return job, fmt.Errorf("bad setup %q", v)
		}
	}
	if v := get("service"); v != "" {
		if job.Service, err = strconv.ParseInt(v, 10, 64); err != nil {
			return job, fmt.Errorf("bad service %q", v)
		}
	}
	if v := get("priority"); v != "" {
		if job.Priority, err = strconv.Atoi(v); err != nil {
			return job, fmt.Errorf("bad priority %q", v)
		}
	}
	if v := get("budget"); v != "" {
		if job.Budget, err = strconv.ParseInt(v, 10, 64); err != nil {
			return job, fmt.Errorf("bad budget %q", v)
		}
	}
	if v := get("pinned"); v != "" {
		if job.Pinned, err = strconv.ParseBool(v); err != nil {
			return job, fmt.Errorf("bad pinned %q", v)
		}
	}
	if job.Delivery, err = amounts(get("delivery")); err != nil {
		return job, err
	}
	if job.Pickup, err = amounts(get("pickup")); err != nil {
		return job, err
	}

	start, end := get("tw_start"), get("tw_end")
	if start != "" || end != "" {
		if start == "" || end == "" {
			return job, fmt.Errorf("tw_start and tw_end must both be set")
		}
		s, err := strconv.ParseInt(start, 10, 64)
		if err != nil {
			return job, fmt.Errorf("bad tw_start %q", start)
		}
		e, err := strconv.ParseInt(end, 10, 64)
		if err != nil {
			return job, fmt.Errorf("bad tw_end %q", end)
		}
		job.TimeWindows = [][2]int64{{s, e}}
	}
	return job, nil
}

func amounts(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "|")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad amount %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}
