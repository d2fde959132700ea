// Package fetch retrieves a job's source video into per-job staging.
//
// Sources arrive as a URL or a base64 payload. URL sources stream over HTTP
// under a context deadline and a byte cap; base64 sources are decoded into
// staging when the job is submitted, so the stage only revalidates them.
// Either way the stage ends with exactly one staged file whose content
// sniffs as video, recorded on the job as its source file.
//
// The per-job staging directory convention lives here; other components use
// StagingDir and CleanupStaging rather than joining paths themselves.
package fetch
