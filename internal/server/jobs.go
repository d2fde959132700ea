package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"reelpress/internal/api"
	"reelpress/internal/fetch"
	"reelpress/internal/logging"
	"reelpress/internal/queue"
)

func (s *Server) handleCreateJob(c *gin.Context) {
	var req api.SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation", "Request body must be valid JSON")
		return
	}

	sourceURL := strings.TrimSpace(req.SourceVideoURL)
	sourceBase64 := strings.TrimSpace(req.SourceVideoBase64)
	switch {
	case sourceURL == "" && sourceBase64 == "":
		respondError(c, http.StatusBadRequest, "validation", "Provide source_video_url or source_video_base64")
		return
	case sourceURL != "" && sourceBase64 != "":
		respondError(c, http.StatusBadRequest, "validation", "Provide exactly one of source_video_url and source_video_base64")
		return
	}

	params := queue.NewJobParams{
		Caption:          strings.TrimSpace(req.Caption),
		Hashtags:         req.Hashtags,
		PublishRequested: req.PostToTikTok,
		AccountIDs:       req.TikTokAccountIDs,
	}
	input := map[string]any{}

	if sourceURL != "" {
		parsed, err := url.Parse(sourceURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			respondError(c, http.StatusBadRequest, "validation", "source_video_url must be an absolute http(s) URL")
			return
		}
		params.SourceKind = queue.SourceKindURL
		params.SourceURL = sourceURL
		input["source_video_url"] = sourceURL
	} else {
		// Decode at submission time so the raw base64 body never reaches
		// the database; the stored input keeps a length marker only.
		jobID := queue.NewJobID()
		staged, size, err := fetch.StageBase64Source(s.cfg, jobID, sourceBase64)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		params.ID = jobID
		params.SourceKind = queue.SourceKindBase64
		params.SourceFile = staged
		input["source_video_base64_bytes"] = size
	}

	if params.Caption != "" {
		input["caption"] = params.Caption
	}
	if len(params.Hashtags) > 0 {
		input["hashtags"] = params.Hashtags
	}
	if req.PostToTikTok {
		input["postToTikTok"] = true
		input["tiktok_account_ids"] = req.TikTokAccountIDs
	}
	encoded, err := json.Marshal(input)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", "Failed to encode job input")
		return
	}
	params.InputJSON = string(encoded)

	job, err := s.store.NewJob(c.Request.Context(), params)
	if err != nil {
		if params.SourceKind == queue.SourceKindBase64 && params.ID != "" {
			if cleanupErr := fetch.CleanupStaging(s.cfg, params.ID); cleanupErr != nil {
				s.logger.Warn("failed to clean staged source after enqueue failure", logging.Error(cleanupErr))
			}
		}
		respondError(c, http.StatusInternalServerError, "internal", "Failed to enqueue job")
		return
	}

	logger := logging.WithContext(c.Request.Context(), s.logger)
	logger.Info("job accepted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("source_kind", job.SourceKind),
		logging.Bool("publish_requested", job.PublishRequested),
	)

	c.JSON(http.StatusOK, api.SubmitJobResponse{
		JobID:    job.ID,
		State:    string(job.Status),
		Progress: int(job.Progress),
	})
}

func (s *Server) handleGetJob(c *gin.Context) {
	id := c.Param("job_id")
	detail, err := s.store.GetDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", "Failed to read job")
		return
	}
	if detail == nil {
		respondError(c, http.StatusNotFound, "not_found", "Unknown job id "+id)
		return
	}
	c.JSON(http.StatusOK, api.JobViewFrom(detail))
}

func (s *Server) handleListJobs(c *gin.Context) {
	var statuses []queue.Status
	if raw := strings.TrimSpace(c.Query("state")); raw != "" {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			respondError(c, http.StatusBadRequest, "validation", "Unknown state "+raw)
			return
		}
		statuses = append(statuses, status)
	}

	jobs, err := s.store.List(c.Request.Context(), statuses...)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", "Failed to list jobs")
		return
	}
	response := api.JobListResponse{Jobs: make([]api.JobSummary, 0, len(jobs))}
	for _, job := range jobs {
		response.Jobs = append(response.Jobs, api.JobSummaryFrom(job))
	}
	c.JSON(http.StatusOK, response)
}

func (s *Server) handleClearJobs(c *gin.Context) {
	scope := strings.TrimSpace(c.DefaultQuery("scope", "completed"))
	var (
		removed int64
		err     error
	)
	switch scope {
	case "completed":
		removed, err = s.store.ClearCompleted(c.Request.Context())
	case "failed":
		removed, err = s.store.ClearFailed(c.Request.Context())
	case "all":
		removed, err = s.store.Clear(c.Request.Context())
	default:
		respondError(c, http.StatusBadRequest, "validation", "scope must be completed, failed, or all")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", "Failed to clear jobs")
		return
	}
	c.JSON(http.StatusOK, api.ClearJobsResponse{Removed: removed})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal", "Failed to read queue stats")
		return
	}
	counts := make(map[string]int, len(stats))
	for status, count := range stats {
		counts[string(status)] = count
	}
	c.JSON(http.StatusOK, api.StatsResponse{Counts: counts})
}

func (s *Server) handleStatus(c *gin.Context) {
	summary := s.manager.Status(c.Request.Context())
	c.JSON(http.StatusOK, api.StatusResponseFrom(summary, s.store.Path()))
}
