package logging

import (
	"log/slog"
	"strings"
)

type infoField struct {
	label string
	value string
}

const infoAttrLimit = 8

var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDecisionType,
	"state",
	"status",
	FieldProgressStage,
	FieldProgressPercent,
	FieldProgressMessage,
	FieldProgressETA,
	"command",
	"error_message",
	FieldErrorCode,
	FieldErrorHint,
	FieldErrorDetailPath,
	"source_url",
	"source_kind",
	"source_bytes",
	"content_type",
	"input_bytes",
	"output_bytes",
	"video_resolution",
	"video_duration",
	"audio_policy",
	"jitter",
	"fallback",
	"degraded",
	"degraded_reason",
	"backend",
	"bucket",
	"storage_key",
	"video_url",
	"publish_id",
	"accounts_requested",
	"accounts_published",
	"accounts_failed",
	"display_name",
	"caption",
	"http_status",
	"attempts",
	// Stage summary fields
	"stage_duration",
	"download_duration",
	"encode_duration",
	"upload_duration",
	"publish_duration",
	"workers",
	"transcode_slots",
	"jobs_claimed",
	"reason",
}

// selectInfoFields returns formatted info-level fields and a count of hidden entries.
// limit=0 means no limit. includeDebug controls whether debug-only keys are allowed.
func selectInfoFields(attrs []kv, limit int, includeDebug bool) ([]infoField, int) {
	if len(attrs) == 0 {
		return nil, 0
	}
	if limit < 0 {
		limit = 0
	}
	used := make([]bool, len(attrs))
	formatted := make([]string, len(attrs))
	formattedSet := make([]bool, len(attrs))
	ensureValue := func(idx int) string {
		if !formattedSet[idx] {
			formatted[idx] = formatValueForKeyWithAttrs(attrs[idx].key, attrs[idx].value, attrs)
			formattedSet[idx] = true
		}
		return formatted[idx]
	}
	result := make([]infoField, 0, infoAttrLimit)
	hidden := 0

	for _, key := range infoHighlightKeys {
		if limit > 0 && len(result) >= limit {
			break
		}
		for idx, attr := range attrs {
			if used[idx] || attr.key != key {
				continue
			}
			used[idx] = true
			if skipInfoKey(attr.key) {
				break
			}
			if !includeDebug && isDebugOnlyKey(attr.key) {
				hidden++
				break
			}
			val := ensureValue(idx)
			if !includeDebug && shouldHideInfoValue(attr.key, val) {
				hidden++
				break
			}
			result = append(result, infoField{label: displayLabel(attr.key), value: val})
			break
		}
	}

	for idx, attr := range attrs {
		if used[idx] {
			continue
		}
		used[idx] = true
		if skipInfoKey(attr.key) {
			continue
		}
		if !includeDebug && isDebugOnlyKey(attr.key) {
			hidden++
			continue
		}
		val := ensureValue(idx)
		if !includeDebug && shouldHideInfoValue(attr.key, val) {
			hidden++
			continue
		}
		if limit <= 0 || len(result) < limit {
			result = append(result, infoField{label: displayLabel(attr.key), value: val})
		} else if limit > 0 {
			hidden++
		}
	}

	return result, hidden
}

// formatValueForKeyWithAttrs applies smart formatting based on the key name.
func formatValueForKeyWithAttrs(key string, v slog.Value, attrs []kv) string {
	v = v.Resolve()

	if isByteSizeKey(key) && (v.Kind() == slog.KindInt64 || v.Kind() == slog.KindUint64) {
		var bytes int64
		if v.Kind() == slog.KindInt64 {
			bytes = v.Int64()
		} else {
			bytes = int64(v.Uint64())
		}
		return formatBytes(bytes)
	}

	if isDurationKey(key) && v.Kind() == slog.KindDuration {
		return formatDurationHuman(v.Duration())
	}

	if isPercentKey(key) {
		switch v.Kind() {
		case slog.KindFloat64:
			return formatPercent(v.Float64())
		case slog.KindInt64:
			return formatPercent(float64(v.Int64()))
		}
	}

	if v.Kind() == slog.KindBool {
		if v.Bool() {
			return "yes"
		}
		return "no"
	}

	value := formatValue(v)
	if key == "error" || key == "error_message" {
		detailPath := attrValue(attrs, FieldErrorDetailPath)
		value = truncateErrorValue(value, detailPath)
	}
	return value
}

// isByteSizeKey returns true if the key represents a byte size.
func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") ||
		strings.HasSuffix(key, "_size") ||
		key == "size"
}

// isDurationKey returns true if the key represents a duration.
func isDurationKey(key string) bool {
	return strings.HasSuffix(key, "_duration") ||
		strings.HasSuffix(key, "_elapsed") ||
		strings.HasSuffix(key, "_latency") ||
		key == "elapsed" ||
		key == "duration" ||
		key == "backoff"
}

// isPercentKey returns true if the key represents a percentage.
func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent") ||
		key == "progress" ||
		key == FieldProgressPercent
}

func truncateErrorValue(value, detailPath string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	const maxLen = 200
	if len(value) > maxLen {
		value = value[:maxLen] + "..."
	}
	if strings.TrimSpace(detailPath) != "" {
		if !strings.Contains(value, "error_detail_path") && !strings.Contains(value, "detail_path") {
			value += " (see error_detail_path)"
		}
	}
	return value
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldJobID, FieldStage, FieldWorker, FieldComponent:
		return true
	default:
		return false
	}
}

func isDebugOnlyKey(key string) bool {
	if key == "" {
		return true
	}
	switch key {
	case FieldRequestID,
		FieldSessionID,
		"remote_addr",
		"user_agent",
		"scope",
		"expires_at",
		"db_path",
		"lock_path",
		"object_name",
		"endpoint",
		"bind",
		"poll_interval",
		"staging_bytes_free":
		return true
	}
	if strings.Contains(key, "request") {
		return true
	}
	if strings.HasSuffix(key, "_id") && key != FieldJobID && key != "publish_id" {
		return true
	}
	if strings.HasPrefix(key, "ffprobe.") || strings.HasPrefix(key, "ffmpeg.") {
		return true
	}
	if strings.Contains(key, "_path") || strings.Contains(key, "_dir") || strings.Contains(key, "_file") {
		return true
	}
	if strings.Contains(key, "token") || strings.Contains(key, "secret") {
		return true
	}
	return false
}

func shouldHideInfoValue(key, value string) bool {
	switch key {
	case "error_message", "error", "command", "reason", "degraded_reason":
		return false
	}
	return len(value) > 120
}

func displayLabel(key string) string {
	switch key {
	case FieldAlert:
		return "Alert"
	case FieldEventType:
		return "Event"
	case FieldDecisionType:
		return "Decision"
	case FieldErrorCode:
		return "Error Code"
	case FieldErrorHint:
		return "Hint"
	case FieldErrorDetailPath:
		return "Error Detail"
	case FieldJobID:
		return "Job"
	case FieldStage:
		return "Stage"
	case "state":
		return "State"
	case "status":
		return "Status"
	case FieldProgressStage:
		return "Progress Stage"
	case FieldProgressPercent:
		return "Progress"
	case FieldProgressMessage:
		return "Progress"
	case FieldProgressETA:
		return "ETA"
	case "source_url":
		return "Source"
	case "source_kind":
		return "Source Kind"
	case "source_bytes":
		return "Source Size"
	case "content_type":
		return "Content Type"
	case "input_bytes":
		return "Input"
	case "output_bytes":
		return "Output"
	case "video_resolution":
		return "Resolution"
	case "video_duration":
		return "Duration"
	case "audio_policy":
		return "Audio"
	case "jitter":
		return "Jitter"
	case "fallback":
		return "Fallback"
	case "degraded":
		return "Degraded"
	case "degraded_reason":
		return "Degraded Reason"
	case "backend":
		return "Backend"
	case "bucket":
		return "Bucket"
	case "storage_key":
		return "Key"
	case "video_url":
		return "Video URL"
	case "publish_id":
		return "Publish ID"
	case "accounts_requested":
		return "Accounts"
	case "accounts_published":
		return "Published"
	case "accounts_failed":
		return "Failed"
	case "display_name":
		return "Account"
	case "http_status":
		return "HTTP Status"
	case "attempts":
		return "Attempts"
	case "stage_duration":
		return "Duration"
	case "download_duration":
		return "Download Time"
	case "encode_duration":
		return "Encode Time"
	case "upload_duration":
		return "Upload Time"
	case "publish_duration":
		return "Publish Time"
	case "workers":
		return "Workers"
	case "transcode_slots":
		return "Transcode Slots"
	case "jobs_claimed":
		return "Claimed"
	case "reason":
		return "Reason"
	default:
		return titleizeKey(key)
	}
}

func titleizeKey(key string) string {
	if key == "" {
		return ""
	}
	parts := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-'
	})
	if len(parts) == 0 {
		return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
	}
	for i, part := range parts {
		parts[i] = capitalizeASCII(part)
	}
	return strings.Join(parts, " ")
}

func capitalizeASCII(value string) string {
	switch len(value) {
	case 0:
		return ""
	case 1:
		return strings.ToUpper(value)
	default:
		lower := strings.ToLower(value)
		return strings.ToUpper(lower[:1]) + lower[1:]
	}
}

func infoSummaryKey(component, jobID string, attrs []kv) string {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		if src := attrValue(attrs, "source_url"); src != "" {
			jobID = "source:" + src
		} else if component != "" {
			jobID = component
		}
	}
	return jobID
}

func attrValue(attrs []kv, key string) string {
	for _, kv := range attrs {
		if kv.key == key {
			return attrString(kv.value)
		}
	}
	return ""
}
