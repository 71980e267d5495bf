package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	FramesDir string `toml:"frames_dir"`
	LockDir   string `toml:"lock_dir"`
}

// Store contains configuration for the annotation store backend.
type Store struct {
	Path string `toml:"path"`
}

// Queues names the work queues and selects where their items live.
type Queues struct {
	Backend              string `toml:"backend"`
	RedisAddr            string `toml:"redis_addr"`
	RedisDB              int    `toml:"redis_db"`
	RedisPrefix          string `toml:"redis_prefix"`
	SubmissionIn         string `toml:"submission_in"`
	SubmissionEvidenceIn string `toml:"submission_evidence_in"`
	EvidenceIn           string `toml:"evidence_in"`
	EvidenceOut          string `toml:"evidence_out"`
	LabelIn              string `toml:"label_in"`
	LabelOut             string `toml:"label_out"`
}

// Corpus names the test corpus and the shared workflow layers inside it.
type Corpus struct {
	Test           string `toml:"test"`
	SubmissionShot string `toml:"submission_shot"`
	EvidenceAll    string `toml:"evidence_all"`
	Mugshot        string `toml:"mugshot"`
	LabelConsensus string `toml:"label_consensus"`
	LabelUnknown   string `toml:"label_unknown"`
	LabelAll       string `toml:"label_all"`
}

// Principals names the robot users and group conventions.
type Principals struct {
	RobotEvidence string `toml:"robot_evidence"`
	RobotLabel    string `toml:"robot_label"`
	TeamPrefix    string `toml:"team_prefix"`
	Organizer     string `toml:"organizer"`
	Baseline      string `toml:"baseline"`
}

// Robots contains per-role refresh periods (seconds) and the dry-run switch.
type Robots struct {
	SubmissionPeriod  int  `toml:"submission_period"`
	EvidencePeriod    int  `toml:"evidence_period"`
	LabelPeriod       int  `toml:"label_period"`
	MugshotPeriod     int  `toml:"mugshot_period"`
	LeaderboardPeriod int  `toml:"leaderboard_period"`
	DryRun            bool `toml:"dry_run"`
}

// Evidence contains evidence-review queueing policy.
type Evidence struct {
	QueueLimit    int     `toml:"queue_limit"`
	AudioPadding  float64 `toml:"audio_padding"`
	VisualPadding float64 `toml:"visual_padding"`
	AudioSource   string  `toml:"audio_source"`
}

// Label contains label-review queueing and consensus policy.
type Label struct {
	QueueLimit     int      `toml:"queue_limit"`
	MinAnnotators  int      `toml:"min_annotators"`
	SkipEmptyShots bool     `toml:"skip_empty_shots"`
	Inset          float64  `toml:"inset"`
	NeighborShots  int      `toml:"neighbor_shots"`
	OthersLimit    int      `toml:"others_limit"`
	Anchors        []string `toml:"anchors"`
}

// Mugshot contains crop geometry for mugshot generation.
type Mugshot struct {
	Size        int `toml:"size"`
	Multiple    int `toml:"multiple"`
	FrameWidth  int `toml:"frame_width"`
	FrameHeight int `toml:"frame_height"`
}

// Leaderboard contains scoring parameters.
type Leaderboard struct {
	LevenshteinThreshold float64 `toml:"levenshtein_threshold"`
	NameSeparator        string  `toml:"name_separator"`
	Videos               string  `toml:"videos"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the robots.
//
// Configuration sections by subsystem:
//   - Paths: data, log, frame, and lock directories
//   - Store: annotation store location
//   - Queues: queue backend and queue names
//   - Corpus: test corpus and workflow layer names
//   - Principals: robot users, team group prefix, organizer group
//   - Robots: refresh periods and dry-run mode
//   - Evidence, Label, Mugshot, Leaderboard: role policy
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Store       Store       `toml:"store"`
	Queues      Queues      `toml:"queues"`
	Corpus      Corpus      `toml:"corpus"`
	Principals  Principals  `toml:"principals"`
	Robots      Robots      `toml:"robots"`
	Evidence    Evidence    `toml:"evidence"`
	Label       Label       `toml:"label"`
	Mugshot     Mugshot     `toml:"mugshot"`
	Leaderboard Leaderboard `toml:"leaderboard"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories robots write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.LockDir, filepath.Dir(c.Store.Path)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Robot roles. Each runs as its own process.
const (
	RoleSubmission  = "submission"
	RoleEvidenceIn  = "evidence-in"
	RoleEvidenceOut = "evidence-out"
	RoleLabelIn     = "label-in"
	RoleLabelOut    = "label-out"
	RoleMugshot     = "mugshot"
	RoleLeaderboard = "leaderboard"
)

// Roles lists every robot role in pipeline order.
func Roles() []string {
	return []string{RoleSubmission, RoleEvidenceIn, RoleEvidenceOut, RoleMugshot, RoleLabelIn, RoleLabelOut, RoleLeaderboard}
}

// RolePeriod returns the refresh period configured for a robot role.
// Unknown roles fall back to the submission period.
func (c *Config) RolePeriod(role string) time.Duration {
	seconds := c.Robots.SubmissionPeriod
	switch role {
	case RoleEvidenceIn, RoleEvidenceOut:
		seconds = c.Robots.EvidencePeriod
	case RoleLabelIn, RoleLabelOut:
		seconds = c.Robots.LabelPeriod
	case RoleMugshot:
		seconds = c.Robots.MugshotPeriod
	case RoleLeaderboard:
		seconds = c.Robots.LeaderboardPeriod
	}
	return time.Duration(seconds) * time.Second
}

// QueueNames lists every configured work queue.
func (c *Config) QueueNames() []string {
	return []string{
		c.Queues.SubmissionIn,
		c.Queues.SubmissionEvidenceIn,
		c.Queues.EvidenceIn,
		c.Queues.EvidenceOut,
		c.Queues.LabelIn,
		c.Queues.LabelOut,
	}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
