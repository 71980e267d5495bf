package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStore(); err != nil {
		return err
	}
	c.normalizeQueues()
	c.normalizeLabel()
	if err := c.normalizeLeaderboard(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.FramesDir, err = expandPath(c.Paths.FramesDir); err != nil {
		return fmt.Errorf("paths.frames_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = filepath.Join(c.Paths.DataDir, "locks")
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStore() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		if value, ok := os.LookupEnv("PD_STORE_PATH"); ok && strings.TrimSpace(value) != "" {
			c.Store.Path = value
		}
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = filepath.Join(c.Paths.DataDir, defaultStoreFile)
	}
	var err error
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeQueues() {
	c.Queues.Backend = strings.ToLower(strings.TrimSpace(c.Queues.Backend))
	if c.Queues.Backend == "" {
		c.Queues.Backend = defaultQueueBackend
	}
	if value, ok := os.LookupEnv("PD_REDIS_ADDR"); ok && strings.TrimSpace(value) != "" {
		c.Queues.RedisAddr = strings.TrimSpace(value)
	}
	c.Queues.RedisAddr = strings.TrimSpace(c.Queues.RedisAddr)
	if c.Queues.RedisAddr == "" {
		c.Queues.RedisAddr = defaultRedisAddr
	}
	c.Queues.SubmissionIn = strings.TrimSpace(c.Queues.SubmissionIn)
	c.Queues.SubmissionEvidenceIn = strings.TrimSpace(c.Queues.SubmissionEvidenceIn)
	c.Queues.EvidenceIn = strings.TrimSpace(c.Queues.EvidenceIn)
	c.Queues.EvidenceOut = strings.TrimSpace(c.Queues.EvidenceOut)
	c.Queues.LabelIn = strings.TrimSpace(c.Queues.LabelIn)
	c.Queues.LabelOut = strings.TrimSpace(c.Queues.LabelOut)
}

func (c *Config) normalizeLabel() {
	anchors := make([]string, 0, len(c.Label.Anchors))
	seen := make(map[string]struct{}, len(c.Label.Anchors))
	for _, anchor := range c.Label.Anchors {
		anchor = strings.TrimSpace(anchor)
		if anchor == "" {
			continue
		}
		if _, dup := seen[anchor]; dup {
			continue
		}
		seen[anchor] = struct{}{}
		anchors = append(anchors, anchor)
	}
	c.Label.Anchors = anchors
}

func (c *Config) normalizeLeaderboard() error {
	if c.Leaderboard.NameSeparator == "" {
		c.Leaderboard.NameSeparator = defaultNameSeparator
	}
	if strings.TrimSpace(c.Leaderboard.Videos) == "" {
		c.Leaderboard.Videos = ""
		return nil
	}
	var err error
	if c.Leaderboard.Videos, err = expandPath(c.Leaderboard.Videos); err != nil {
		return fmt.Errorf("leaderboard.videos: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
