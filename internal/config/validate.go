package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQueues(); err != nil {
		return err
	}
	if err := c.validateCorpus(); err != nil {
		return err
	}
	if err := c.validatePrincipals(); err != nil {
		return err
	}
	if err := c.validateRobots(); err != nil {
		return err
	}
	if err := c.validateEvidence(); err != nil {
		return err
	}
	if err := c.validateLabel(); err != nil {
		return err
	}
	if err := c.validateMugshot(); err != nil {
		return err
	}
	if err := c.validateLeaderboard(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateQueues() error {
	switch c.Queues.Backend {
	case QueueBackendStore, QueueBackendRedis:
	default:
		return fmt.Errorf("queues.backend: unsupported value %q (want %q or %q)", c.Queues.Backend, QueueBackendStore, QueueBackendRedis)
	}
	if c.Queues.RedisDB < 0 {
		return errors.New("queues.redis_db must be non-negative")
	}
	names := map[string]string{
		"queues.submission_in":          c.Queues.SubmissionIn,
		"queues.submission_evidence_in": c.Queues.SubmissionEvidenceIn,
		"queues.evidence_in":            c.Queues.EvidenceIn,
		"queues.evidence_out":           c.Queues.EvidenceOut,
		"queues.label_in":               c.Queues.LabelIn,
		"queues.label_out":              c.Queues.LabelOut,
	}
	for key, value := range names {
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

func (c *Config) validateCorpus() error {
	names := map[string]string{
		"corpus.test":            c.Corpus.Test,
		"corpus.submission_shot": c.Corpus.SubmissionShot,
		"corpus.evidence_all":    c.Corpus.EvidenceAll,
		"corpus.mugshot":         c.Corpus.Mugshot,
		"corpus.label_consensus": c.Corpus.LabelConsensus,
		"corpus.label_unknown":   c.Corpus.LabelUnknown,
		"corpus.label_all":       c.Corpus.LabelAll,
	}
	for key, value := range names {
		if value == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	return nil
}

func (c *Config) validatePrincipals() error {
	if c.Principals.RobotEvidence == "" {
		return errors.New("principals.robot_evidence must be set")
	}
	if c.Principals.RobotLabel == "" {
		return errors.New("principals.robot_label must be set")
	}
	if c.Principals.TeamPrefix == "" {
		return errors.New("principals.team_prefix must be set")
	}
	if c.Principals.Organizer == "" {
		return errors.New("principals.organizer must be set")
	}
	return nil
}

func (c *Config) validateRobots() error {
	periods := map[string]int{
		"robots.submission_period":  c.Robots.SubmissionPeriod,
		"robots.evidence_period":    c.Robots.EvidencePeriod,
		"robots.label_period":       c.Robots.LabelPeriod,
		"robots.mugshot_period":     c.Robots.MugshotPeriod,
		"robots.leaderboard_period": c.Robots.LeaderboardPeriod,
	}
	for key, value := range periods {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func (c *Config) validateEvidence() error {
	if c.Evidence.QueueLimit <= 0 {
		return errors.New("evidence.queue_limit must be positive")
	}
	if c.Evidence.AudioPadding < 0 || c.Evidence.VisualPadding < 0 {
		return errors.New("evidence paddings must be non-negative")
	}
	return nil
}

func (c *Config) validateLabel() error {
	if c.Label.QueueLimit <= 0 {
		return errors.New("label.queue_limit must be positive")
	}
	if c.Label.MinAnnotators < 2 {
		return errors.New("label.min_annotators must be at least 2")
	}
	if c.Label.Inset < 0 {
		return errors.New("label.inset must be non-negative")
	}
	if c.Label.NeighborShots < 0 || c.Label.OthersLimit < 0 {
		return errors.New("label.neighbor_shots and label.others_limit must be non-negative")
	}
	return nil
}

func (c *Config) validateMugshot() error {
	if c.Mugshot.Size <= 0 {
		return errors.New("mugshot.size must be positive")
	}
	if c.Mugshot.Multiple <= 0 {
		return errors.New("mugshot.multiple must be positive")
	}
	if c.Mugshot.FrameWidth <= 0 || c.Mugshot.FrameHeight <= 0 {
		return errors.New("mugshot.frame_width and mugshot.frame_height must be positive")
	}
	return nil
}

func (c *Config) validateLeaderboard() error {
	if c.Leaderboard.LevenshteinThreshold <= 0 || c.Leaderboard.LevenshteinThreshold > 1 {
		return errors.New("leaderboard.levenshtein_threshold must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
