package catalog

import (
	"context"
	"errors"
	"log/slog"

	"persondiscovery/internal/config"
	"persondiscovery/internal/logging"
	"persondiscovery/internal/store"
)

// Ensure creates whatever workflow resources are missing, grants the robot
// principals access to the shared layers, and returns the resolved catalog.
// Running it twice changes nothing.
func Ensure(ctx context.Context, src Source, cfg *config.Config, logger *slog.Logger) (*Catalog, error) {
	logger = logging.NewComponentLogger(logger, "catalog")

	corpus, err := CorpusByName(ctx, src, cfg.Corpus.Test)
	if isMissing(err) {
		if corpus, err = src.CreateCorpus(ctx, cfg.Corpus.Test); err == nil {
			logger.Info("created corpus", logging.String("name", corpus.Name))
		}
	}
	if err != nil {
		return nil, err
	}

	probe := &Catalog{}
	for _, spec := range probe.layerSpecs(cfg) {
		_, err := LayerByName(ctx, src, corpus.ID, spec.name)
		if !isMissing(err) {
			if err != nil {
				return nil, err
			}
			continue
		}
		layer, err := src.CreateLayer(ctx, store.Layer{
			CorpusID:     corpus.ID,
			Name:         spec.name,
			DataType:     spec.dataType,
			FragmentType: spec.fragmentType,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("created layer", logging.String("name", layer.Name), logging.String(logging.FieldLayerID, layer.ID))
	}

	for _, name := range cfg.QueueNames() {
		_, err := QueueByName(ctx, src, name)
		if !isMissing(err) {
			if err != nil {
				return nil, err
			}
			continue
		}
		if _, err := src.CreateQueue(ctx, name); err != nil {
			return nil, err
		}
		logger.Info("created queue", logging.String(logging.FieldQueue, name))
	}

	principals := []struct {
		name string
		kind store.PrincipalKind
	}{
		{cfg.Principals.RobotEvidence, store.PrincipalUser},
		{cfg.Principals.RobotLabel, store.PrincipalUser},
		{cfg.Principals.Organizer, store.PrincipalGroup},
	}
	if cfg.Principals.Baseline != "" {
		principals = append(principals, struct {
			name string
			kind store.PrincipalKind
		}{cfg.Principals.Baseline, store.PrincipalGroup})
	}
	for _, p := range principals {
		_, err := PrincipalByName(ctx, src, p.kind, p.name)
		if !isMissing(err) {
			if err != nil {
				return nil, err
			}
			continue
		}
		if _, err := src.CreatePrincipal(ctx, p.name, p.kind); err != nil {
			return nil, err
		}
		logger.Info("created principal", logging.String("name", p.name), logging.String("kind", string(p.kind)))
	}

	c, err := Resolve(ctx, src, cfg)
	if err != nil {
		return nil, err
	}
	if err := c.grantRobotAccess(ctx, src); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) grantRobotAccess(ctx context.Context, src store.PrincipalStore) error {
	grants := []struct {
		layer      store.Layer
		principal  store.Principal
		permission store.Permission
	}{
		{c.EvidenceAll, c.RobotEvidence, store.PermissionAdmin},
		{c.Mugshot, c.RobotEvidence, store.PermissionAdmin},
		{c.SubmissionShot, c.RobotEvidence, store.PermissionRead},
		{c.SubmissionShot, c.RobotLabel, store.PermissionRead},
		{c.Mugshot, c.RobotLabel, store.PermissionRead},
		{c.EvidenceAll, c.RobotLabel, store.PermissionRead},
		{c.Consensus, c.RobotLabel, store.PermissionAdmin},
		{c.Unknown, c.RobotLabel, store.PermissionAdmin},
		{c.LabelAll, c.RobotLabel, store.PermissionAdmin},
	}
	for _, g := range grants {
		if err := src.SetLayerPermission(ctx, g.layer.ID, g.principal, g.permission); err != nil {
			return err
		}
	}
	return nil
}

func isMissing(err error) bool {
	return errors.Is(err, ErrMissing)
}
