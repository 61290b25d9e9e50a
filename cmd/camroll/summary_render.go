package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"camroll/internal/mirror"
	"camroll/internal/organize"
)

func renderSummary(s organize.Summary) string {
	title := s.Label
	if title == "" {
		title = "organize"
	}
	if s.DryRun {
		title += " (dry run)"
	}

	metrics := []metric{
		countMetric("Groups", s.Groups),
		countMetric("Files planned", s.FilesPlanned),
		countMetric("Folders created", s.FoldersCreated),
		countMetric("Files moved", s.FilesMoved),
		countMetric("Files failed", s.FilesFailed),
		countMetric("Skipped", s.Skipped),
		countMetric("Jobs submitted", s.JobsSubmitted),
		{label: "Jobs failed", value: listOrDash(s.JobsFailed)},
	}
	if len(s.JobsCancelled) > 0 {
		metrics = append(metrics, metric{label: "Jobs cancelled", value: listOrDash(s.JobsCancelled)})
	}
	if len(s.JobsTimedOut) > 0 {
		metrics = append(metrics, metric{label: "Jobs timed out", value: listOrDash(s.JobsTimedOut)})
	}
	metrics = append(metrics, metric{label: "Duration", value: s.Duration().Round(time.Millisecond).String()})

	out := renderMetrics(fmt.Sprintf("Run %s: %s", s.RunID, title), "Metric", metrics)
	if errs := renderRunErrors(s.Errors); errs != "" {
		out += "\n" + errs
	}
	return out
}

func renderMirrorResult(r mirror.Result, dryRun bool) string {
	title := ""
	if dryRun {
		title = "Dry run: nothing was written"
	}
	return renderMetrics(title, "Mirror", []metric{
		countMetric("Folders", r.Folders),
		countMetric("Downloaded", r.Downloaded),
		countMetric("Skipped", r.Skipped),
		countMetric("Failed", r.Failed),
		{label: "Bytes", value: strconv.FormatInt(r.Bytes, 10)},
	})
}

func listOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
