package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"persondiscovery/internal/logging"
	"persondiscovery/internal/robot"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// DateLayout is the format of the published leaderboard date.
const DateLayout = "2006-01-02 at 15:04"

// Board is one scoring of every eligible submission.
type Board struct {
	Teams   []store.Principal
	Runs    []Run
	Queries int
	Shots   int
}

// Robot scores submissions and publishes the team leaderboards.
type Robot struct {
	env    *robot.Env
	logger *slog.Logger
}

// New builds the leaderboard robot.
func New(env *robot.Env) *Robot {
	return &Robot{env: env, logger: env.Logger}
}

// Run repeats Pass every period until ctx is done.
func (r *Robot) Run(ctx context.Context) error {
	return r.env.Run(ctx, func(ctx context.Context) error {
		_, err := r.Pass(ctx)
		return err
	})
}

// Pass scores and publishes once.
func (r *Robot) Pass(ctx context.Context) (*Board, error) {
	board, err := r.Score(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.Publish(ctx, board); err != nil {
		return board, err
	}
	return board, nil
}

// Score evaluates every original complete submission.
func (r *Robot) Score(ctx context.Context) (*Board, error) {
	cat := r.env.Catalog
	teams, err := r.teams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teamNames := make(map[string]string, len(teams))
	for _, team := range teams {
		teamNames[team.ID] = team.Name
	}
	media, err := r.evaluatedMedia(ctx)
	if err != nil {
		return nil, err
	}
	ref, skipped, err := LoadReference(ctx, r.env.Store, cat.Consensus.ID, media, r.env.Config.Leaderboard.NameSeparator)
	if err != nil {
		return nil, fmt.Errorf("load consensus: %w", err)
	}
	if skipped > 0 {
		r.logger.Warn("ignored malformed consensus records", logging.Int("count", skipped))
	}

	layers, err := r.env.Store.Layers(ctx, cat.Corpus.ID, store.DataLabel)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	board := &Board{Teams: teams, Queries: len(ref.Relevant), Shots: len(ref.Shots)}
	for _, layer := range layers {
		desc := layer.Label()
		if !desc.IsOriginalComplete() {
			continue
		}
		team, ok := teamNames[desc.TeamID]
		if !ok {
			r.logger.Debug("submission without a known team", logging.String(logging.FieldLayerID, layer.ID))
			continue
		}
		hits, err := r.hits(ctx, layer.ID)
		if err != nil {
			if services.IsStale(err) {
				continue
			}
			return nil, fmt.Errorf("load submission %s: %w", layer.ID, err)
		}
		mAP, _ := MeanAveragePrecision(hits, ref, r.env.Config.Leaderboard.LevenshteinThreshold)
		r.logger.Info("evaluated submission",
			logging.String("team", team),
			logging.String("run", layer.Name),
			logging.Float64("map", mAP),
		)
		board.Runs = append(board.Runs, Run{TeamID: desc.TeamID, Team: team, Name: layer.Name, MAP: mAP})
	}
	board.Runs = Rank(board.Runs)
	return board, nil
}

// Publish writes every team's view into its leaderboard layer, creating the
// layer with read access for the team on first use.
func (r *Robot) Publish(ctx context.Context, board *Board) error {
	cat := r.env.Catalog
	existing, err := r.env.Store.Layers(ctx, cat.Corpus.ID, store.DataLeaderboard)
	if err != nil {
		return fmt.Errorf("list leaderboards: %w", err)
	}
	byName := make(map[string]store.Layer, len(existing))
	for _, layer := range existing {
		byName[layer.Name] = layer
	}
	date := r.env.Clock.Now().Format(DateLayout)
	for _, team := range board.Teams {
		desc := store.LeaderboardDescription{
			Date:    date,
			Ranking: View(board.Runs, team.Name, r.env.Config.Principals),
			Queries: board.Queries,
			Shots:   board.Shots,
		}
		name := LayerName(team.Name)
		if r.env.DryRun() {
			r.logger.Info("dry run: would publish leaderboard", logging.String("team", team.Name))
			continue
		}
		layer, ok := byName[name]
		if !ok {
			if layer, err = r.createLayer(ctx, name, team); err != nil {
				return err
			}
		}
		if err := r.env.Store.UpdateLayerDescription(ctx, layer.ID, desc); err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
	}
	r.logger.Info("leaderboards published",
		logging.Int("teams", len(board.Teams)),
		logging.Int("runs", len(board.Runs)),
		logging.Int("queries", board.Queries),
		logging.Int("shots", board.Shots),
	)
	return nil
}

// LayerName is the name of a team's leaderboard layer.
func LayerName(team string) string {
	return "leaderboard (" + team + ")"
}

func (r *Robot) createLayer(ctx context.Context, name string, team store.Principal) (store.Layer, error) {
	layer, err := r.env.Store.CreateLayer(ctx, store.Layer{
		CorpusID:    r.env.Catalog.Corpus.ID,
		Name:        name,
		DataType:    store.DataLeaderboard,
		Description: store.LeaderboardDescription{},
	})
	if err != nil {
		return store.Layer{}, fmt.Errorf("create %s: %w", name, err)
	}
	if err := r.env.Store.SetLayerPermission(ctx, layer.ID, team, store.PermissionRead); err != nil {
		return store.Layer{}, fmt.Errorf("grant %s on %s: %w", team.Name, name, err)
	}
	r.logger.Info("created leaderboard layer", logging.String(logging.FieldLayerID, layer.ID), logging.String("team", team.Name))
	return layer, nil
}

func (r *Robot) teams(ctx context.Context) ([]store.Principal, error) {
	groups, err := r.env.Store.Principals(ctx, store.PrincipalGroup)
	if err != nil {
		return nil, err
	}
	principals := r.env.Config.Principals
	var teams []store.Principal
	for _, g := range groups {
		if strings.HasPrefix(g.Name, principals.TeamPrefix) || g.Name == principals.Organizer {
			teams = append(teams, g)
		}
	}
	return teams, nil
}

// evaluatedMedia resolves the videos list to medium ids. Without a list
// every medium is evaluated and nil is returned.
func (r *Robot) evaluatedMedia(ctx context.Context) (map[string]struct{}, error) {
	path := r.env.Config.Leaderboard.Videos
	if path == "" {
		return nil, nil
	}
	names, err := ReadVideos(path)
	if err != nil {
		return nil, err
	}
	media, err := r.env.Store.Media(ctx, r.env.Catalog.Corpus.ID)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	byName := make(map[string]string, len(media))
	for _, m := range media {
		byName[m.Name] = m.ID
	}
	out := make(map[string]struct{}, len(names))
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			r.logger.Debug("listed video not in corpus", logging.String("video", name))
			continue
		}
		out[id] = struct{}{}
	}
	return out, nil
}

func (r *Robot) hits(ctx context.Context, layerID string) ([]Hit, error) {
	annotations, err := r.env.Store.Annotations(ctx, store.AnnotationFilter{LayerID: layerID})
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(annotations))
	for _, a := range annotations {
		hyp, err := store.DecodeData[store.LabelHypothesis](a.Data)
		if err != nil || hyp.PersonName == "" {
			continue
		}
		hits = append(hits, Hit{ShotID: a.Fragment.Ref, PersonName: hyp.PersonName, Confidence: hyp.Confidence})
	}
	return hits, nil
}
