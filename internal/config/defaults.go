package config

const (
	defaultConfigPath        = "~/.config/persondiscovery/config.toml"
	projectConfigName        = "persondiscovery.toml"
	defaultDataDir           = "~/.local/share/persondiscovery"
	defaultLogDir            = "~/.local/share/persondiscovery/logs"
	defaultFramesDir         = "~/.local/share/persondiscovery/frames"
	defaultLockDir           = "~/.local/share/persondiscovery/locks"
	defaultStoreFile         = "store.db"
	defaultQueueBackend      = QueueBackendStore
	defaultRedisAddr         = "127.0.0.1:6379"
	defaultRedisPrefix       = "pd:"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultEvidenceLimit     = 400
	defaultLabelLimit        = 400
	defaultAudioPadding      = 5.0
	defaultVisualPadding     = 0.5
	defaultAudioSource       = "audio"
	defaultMinAnnotators     = 2
	defaultLabelInset        = 0.5
	defaultNeighborShots     = 10
	defaultOthersLimit       = 20
	defaultMugshotSize       = 100
	defaultMugshotMultiple   = 5
	defaultFrameWidth        = 384
	defaultFrameHeight       = 288
	defaultLevenshtein       = 0.95
	defaultNameSeparator     = "_"
	defaultSubmissionPeriod  = 600
	defaultEvidencePeriod    = 600
	defaultLabelPeriod       = 600
	defaultMugshotPeriod     = 10800
	defaultLeaderboardPeriod = 6000
)

// Queue backends.
const (
	QueueBackendStore = "store"
	QueueBackendRedis = "redis"
)

// DefaultAnchors lists the recurring presenters that are always offered to
// label annotators and always treated as having a mugshot.
var DefaultAnchors = []string{
	"david_pujadas",
	"beatrice_schonberg",
	"laurent_delahousse",
	"francoise_laborde",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			FramesDir: defaultFramesDir,
			LockDir:   defaultLockDir,
		},
		Queues: Queues{
			Backend:              defaultQueueBackend,
			RedisAddr:            defaultRedisAddr,
			RedisPrefix:          defaultRedisPrefix,
			SubmissionIn:         "mediaeval.submission.in",
			SubmissionEvidenceIn: "mediaeval.submission.evidence.in",
			EvidenceIn:           "mediaeval.evidence.in",
			EvidenceOut:          "mediaeval.evidence.out",
			LabelIn:              "mediaeval.label.in",
			LabelOut:             "mediaeval.label.out",
		},
		Corpus: Corpus{
			Test:           "mediaeval.test",
			SubmissionShot: "mediaeval.submission_shot",
			EvidenceAll:    "mediaeval.groundtruth.evidence.all",
			Mugshot:        "mediaeval.groundtruth.evidence.mugshot",
			LabelConsensus: "mediaeval.groundtruth.label.consensus",
			LabelUnknown:   "mediaeval.groundtruth.label.unknown",
			LabelAll:       "mediaeval.groundtruth.label.all",
		},
		Principals: Principals{
			RobotEvidence: "robot_evidence",
			RobotLabel:    "robot_label",
			TeamPrefix:    "team_",
			Organizer:     "organizer",
			Baseline:      "team_baseline",
		},
		Robots: Robots{
			SubmissionPeriod:  defaultSubmissionPeriod,
			EvidencePeriod:    defaultEvidencePeriod,
			LabelPeriod:       defaultLabelPeriod,
			MugshotPeriod:     defaultMugshotPeriod,
			LeaderboardPeriod: defaultLeaderboardPeriod,
		},
		Evidence: Evidence{
			QueueLimit:    defaultEvidenceLimit,
			AudioPadding:  defaultAudioPadding,
			VisualPadding: defaultVisualPadding,
			AudioSource:   defaultAudioSource,
		},
		Label: Label{
			QueueLimit:     defaultLabelLimit,
			MinAnnotators:  defaultMinAnnotators,
			SkipEmptyShots: true,
			Inset:          defaultLabelInset,
			NeighborShots:  defaultNeighborShots,
			OthersLimit:    defaultOthersLimit,
			Anchors:        append([]string(nil), DefaultAnchors...),
		},
		Mugshot: Mugshot{
			Size:        defaultMugshotSize,
			Multiple:    defaultMugshotMultiple,
			FrameWidth:  defaultFrameWidth,
			FrameHeight: defaultFrameHeight,
		},
		Leaderboard: Leaderboard{
			LevenshteinThreshold: defaultLevenshtein,
			NameSeparator:        defaultNameSeparator,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
