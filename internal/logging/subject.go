package logging

import "strings"

// FormatSubject builds the worker/job/stage subject string used in console output.
func FormatSubject(worker, jobID, stage string) string {
	worker = strings.TrimSpace(worker)
	jobID = strings.TrimSpace(jobID)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 3)
	if worker != "" {
		var formatted string
		if len(worker) > 1 {
			formatted = strings.ToUpper(worker[:1]) + strings.ToLower(worker[1:])
		} else {
			formatted = strings.ToUpper(worker)
		}
		parts = append(parts, formatted)
	}
	switch {
	case jobID != "" && stage != "":
		parts = append(parts, jobID+" ("+stage+")")
	case jobID != "":
		parts = append(parts, jobID)
	case stage != "":
		parts = append(parts, stage)
	}
	return strings.Join(parts, " | ")
}
