package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const jobColumns = "id, status, progress, source_kind, source_url, input_json, caption, hashtags_json, publish_requested, account_ids_json, source_file, encoded_file, degraded, degraded_reason, error_message, progress_stage, progress_message, started_at, created_at, updated_at, completed_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               string
		statusStr        string
		progress         sql.NullFloat64
		sourceKind       sql.NullString
		sourceURL        sql.NullString
		inputJSON        sql.NullString
		caption          sql.NullString
		hashtagsJSON     sql.NullString
		publishRequested sql.NullInt64
		accountIDsJSON   sql.NullString
		sourceFile       sql.NullString
		encodedFile      sql.NullString
		degraded         sql.NullInt64
		degradedReason   sql.NullString
		errorMessage     sql.NullString
		progressStage    sql.NullString
		progressMessage  sql.NullString
		startedRaw       sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		completedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&statusStr,
		&progress,
		&sourceKind,
		&sourceURL,
		&inputJSON,
		&caption,
		&hashtagsJSON,
		&publishRequested,
		&accountIDsJSON,
		&sourceFile,
		&encodedFile,
		&degraded,
		&degradedReason,
		&errorMessage,
		&progressStage,
		&progressMessage,
		&startedRaw,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		Status:          Status(statusStr),
		Progress:        progress.Float64,
		SourceKind:      sourceKind.String,
		SourceURL:       sourceURL.String,
		InputJSON:       inputJSON.String,
		Caption:         caption.String,
		Hashtags:        decodeStringSlice(hashtagsJSON.String),
		AccountIDs:      decodeStringSlice(accountIDsJSON.String),
		SourceFile:      sourceFile.String,
		EncodedFile:     encodedFile.String,
		DegradedReason:  degradedReason.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressMessage: progressMessage.String,
	}
	if publishRequested.Valid {
		job.PublishRequested = publishRequested.Int64 != 0
	}
	if degraded.Valid {
		job.Degraded = degraded.Int64 != 0
	}

	if startedRaw.Valid {
		if started, err := parseTimeString(startedRaw.String); err == nil {
			job.StartedAt = &started
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}

const outputColumns = "id, job_id, position, video_url, storage_key, caption, hashtags_json, publishes_json, created_at"

func scanOutput(scanner interface{ Scan(dest ...any) error }) (JobOutput, error) {
	var (
		id            int64
		jobID         string
		position      int
		videoURL      string
		storageKey    sql.NullString
		caption       sql.NullString
		hashtagsJSON  sql.NullString
		publishesJSON sql.NullString
		createdRaw    sql.NullString
	)
	if err := scanner.Scan(&id, &jobID, &position, &videoURL, &storageKey, &caption, &hashtagsJSON, &publishesJSON, &createdRaw); err != nil {
		return JobOutput{}, err
	}
	output := JobOutput{
		ID:         id,
		JobID:      jobID,
		Position:   position,
		VideoURL:   videoURL,
		StorageKey: storageKey.String,
		Caption:    caption.String,
		Hashtags:   decodeStringSlice(hashtagsJSON.String),
	}
	if publishesJSON.Valid && publishesJSON.String != "" {
		_ = json.Unmarshal([]byte(publishesJSON.String), &output.Publishes)
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		output.CreatedAt = created
	}
	return output, nil
}

const eventColumns = "id, job_id, event_type, message, payload_json, created_at"

func scanEvent(scanner interface{ Scan(dest ...any) error }) (JobEvent, error) {
	var (
		id         int64
		jobID      string
		eventType  string
		message    sql.NullString
		payload    sql.NullString
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&id, &jobID, &eventType, &message, &payload, &createdRaw); err != nil {
		return JobEvent{}, err
	}
	event := JobEvent{
		ID:          id,
		JobID:       jobID,
		Type:        eventType,
		Message:     message.String,
		PayloadJSON: payload.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		event.CreatedAt = created
	}
	return event, nil
}

const accountColumns = "open_id, display_name, avatar_url, access_token, refresh_token, expires_at, refresh_expires_at, scopes, created_at, updated_at"

func scanAccount(scanner interface{ Scan(dest ...any) error }) (*Account, error) {
	var (
		openID            string
		displayName       sql.NullString
		avatarURL         sql.NullString
		accessToken       string
		refreshToken      sql.NullString
		expiresRaw        sql.NullString
		refreshExpiresRaw sql.NullString
		scopes            sql.NullString
		createdRaw        sql.NullString
		updatedRaw        sql.NullString
	)
	if err := scanner.Scan(&openID, &displayName, &avatarURL, &accessToken, &refreshToken, &expiresRaw, &refreshExpiresRaw, &scopes, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	account := &Account{
		OpenID:       openID,
		DisplayName:  displayName.String,
		AvatarURL:    avatarURL.String,
		AccessToken:  accessToken,
		RefreshToken: refreshToken.String,
		Scopes:       scopes.String,
	}
	if expiresRaw.Valid {
		if expires, err := parseTimeString(expiresRaw.String); err == nil {
			account.ExpiresAt = expires
		}
	}
	if refreshExpiresRaw.Valid {
		if expires, err := parseTimeString(refreshExpiresRaw.String); err == nil {
			account.RefreshExpiresAt = expires
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		account.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		account.UpdatedAt = updated
	}
	return account, nil
}

func encodeStringSlice(values []string) any {
	if len(values) == 0 {
		return nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(data)
}

func decodeStringSlice(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
