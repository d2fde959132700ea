package config

// Storage backend identifiers accepted by storage.backend.
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"
)

const (
	defaultStagingDir         = "~/.local/share/reelpress/staging"
	defaultDataDir            = "~/.local/share/reelpress"
	defaultLogDir             = "~/.local/share/reelpress/logs"
	defaultLogRetentionDays   = 60
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultAPIBind            = "127.0.0.1:7470"
	defaultWorkers            = 2
	defaultTranscodeSlots     = 1
	defaultQueuePollInterval  = 2
	defaultDownloadTimeout    = 300
	defaultMaxDownloadBytes   = 2 << 30
	defaultMinSourceBytes     = 10 * 1024
	defaultCRF                = 23
	defaultPreset             = "veryfast"
	defaultAudioPolicy        = "aac"
	defaultFallback           = "remux"
	defaultTranscodeTimeout   = 360
	defaultStorageBucket      = "outputs"
	defaultLocalOutputDir     = "~/.local/share/reelpress/outputs"
	defaultTikTokTimeout      = 15
	defaultTokenRefreshMargin = 300
	defaultNotifyTimeout      = 10
	defaultNotifyMaxAttempts  = 3
	defaultNotifyRetryBackoff = 2
)

func defaultTikTokScopes() []string {
	return []string{"user.info.basic", "video.upload"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Workflow: Workflow{
			Workers:           defaultWorkers,
			TranscodeSlots:    defaultTranscodeSlots,
			QueuePollInterval: defaultQueuePollInterval,
		},
		Fetch: Fetch{
			DownloadTimeout:  defaultDownloadTimeout,
			MaxDownloadBytes: defaultMaxDownloadBytes,
			MinSourceBytes:   defaultMinSourceBytes,
		},
		Transcode: Transcode{
			CRF:         defaultCRF,
			Preset:      defaultPreset,
			AudioPolicy: defaultAudioPolicy,
			Jitter:      true,
			Fallback:    defaultFallback,
			Timeout:     defaultTranscodeTimeout,
		},
		Storage: Storage{
			Backend:  StorageBackendLocal,
			Bucket:   defaultStorageBucket,
			LocalDir: defaultLocalOutputDir,
		},
		TikTok: TikTok{
			Scopes:             defaultTikTokScopes(),
			RequestTimeout:     defaultTikTokTimeout,
			TokenRefreshMargin: defaultTokenRefreshMargin,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			MaxAttempts:    defaultNotifyMaxAttempts,
			RetryBackoff:   defaultNotifyRetryBackoff,
			Completed:      true,
			Failed:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
