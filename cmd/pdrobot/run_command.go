package main

import (
	"context"
	"fmt"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"persondiscovery/internal/config"
	"persondiscovery/internal/consensus"
	"persondiscovery/internal/evidence"
	"persondiscovery/internal/leaderboard"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/mugshot"
	"persondiscovery/internal/preflight"
	"persondiscovery/internal/robot"
	"persondiscovery/internal/submission"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:       "run <role>",
		Short:     "Run one robot role until interrupted",
		Long:      "Run one robot role until interrupted.\n\nRoles: " + strings.Join(config.Roles(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Roles(),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := strings.TrimSpace(args[0])
			if !slices.Contains(config.Roles(), role) {
				return fmt.Errorf("unknown role %q (expected one of %s)", role, strings.Join(config.Roles(), ", "))
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if dryRun {
				cfg.Robots.DryRun = true
			}
			return runRobot(cmd.Context(), ctx, cfg, role)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Read queues without popping and skip every write")
	return cmd
}

func runRobot(parent context.Context, ctx *commandContext, cfg *config.Config, role string) error {
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := ctx.logger(role)
	if err != nil {
		return err
	}

	if failed := preflight.Failed(preflight.RunAll(signalCtx, cfg, role)); len(failed) > 0 {
		for _, result := range failed {
			logger.Error("preflight check failed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
		}
		return fmt.Errorf("preflight: %d check(s) failed", len(failed))
	}

	lock, err := robot.AcquireRoleLock(cfg.Paths.LockDir, role)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	env, release, err := robot.Open(signalCtx, cfg, role, logger)
	if err != nil {
		return err
	}
	defer func() { _ = release() }()

	bot, err := newRobot(env)
	if err != nil {
		return err
	}

	env.Logger.Info("robot starting",
		logging.String(logging.FieldRole, role),
		logging.Bool("dry_run", cfg.Robots.DryRun),
		logging.String("lock", lock.Path()),
	)
	err = bot.Run(signalCtx)
	if signalCtx.Err() != nil {
		env.Logger.Info("robot shutting down")
		return nil
	}
	return err
}

func newRobot(env *robot.Env) (robot.Robot, error) {
	switch env.Role {
	case config.RoleSubmission:
		return submission.New(env), nil
	case config.RoleEvidenceIn:
		return evidence.NewInRobot(env), nil
	case config.RoleEvidenceOut:
		return evidence.NewOutRobot(env), nil
	case config.RoleMugshot:
		return mugshot.New(env, mugshot.DirFrames{Root: env.Config.Paths.FramesDir}), nil
	case config.RoleLabelIn:
		return consensus.NewInRobot(env), nil
	case config.RoleLabelOut:
		return consensus.NewOutRobot(env), nil
	case config.RoleLeaderboard:
		return leaderboard.New(env), nil
	default:
		return nil, fmt.Errorf("unknown role %q", env.Role)
	}
}
