package catalog

import (
	"context"
	"errors"
	"fmt"

	"persondiscovery/internal/config"
	"persondiscovery/internal/services"
	"persondiscovery/internal/store"
)

// ErrMissing marks resolution failures caused by an absent resource, as
// opposed to an ambiguous one.
var ErrMissing = errors.New("resource missing")

// Source is the subset of the store catalog resolution reads.
type Source interface {
	store.CorpusStore
	store.LayerStore
	store.QueueStore
	store.PrincipalStore
}

// Queues holds the resolved work queues.
type Queues struct {
	SubmissionIn         store.Queue
	SubmissionEvidenceIn store.Queue
	EvidenceIn           store.Queue
	EvidenceOut          store.Queue
	LabelIn              store.Queue
	LabelOut             store.Queue
}

// Catalog holds every resolved workflow resource.
type Catalog struct {
	Corpus         store.Corpus
	SubmissionShot store.Layer
	EvidenceAll    store.Layer
	Mugshot        store.Layer
	Consensus      store.Layer
	Unknown        store.Layer
	LabelAll       store.Layer
	Queues         Queues
	RobotEvidence  store.Principal
	RobotLabel     store.Principal
}

type layerSpec struct {
	name         string
	dataType     store.DataType
	fragmentType string
	target       *store.Layer
}

func (c *Catalog) layerSpecs(cfg *config.Config) []layerSpec {
	return []layerSpec{
		{cfg.Corpus.SubmissionShot, store.DataSubmissionShot, store.FragmentShot, &c.SubmissionShot},
		{cfg.Corpus.EvidenceAll, store.DataEvidenceGroundTruth, store.FragmentShotID, &c.EvidenceAll},
		{cfg.Corpus.Mugshot, store.DataMugshot, store.FragmentPerson, &c.Mugshot},
		{cfg.Corpus.LabelConsensus, store.DataConsensus, store.FragmentShotID, &c.Consensus},
		{cfg.Corpus.LabelUnknown, store.DataUnknown, store.FragmentShotID, &c.Unknown},
		{cfg.Corpus.LabelAll, store.DataLabelAll, store.FragmentShotID, &c.LabelAll},
	}
}

func (c *Catalog) queueSpecs(cfg *config.Config) map[string]*store.Queue {
	return map[string]*store.Queue{
		cfg.Queues.SubmissionIn:         &c.Queues.SubmissionIn,
		cfg.Queues.SubmissionEvidenceIn: &c.Queues.SubmissionEvidenceIn,
		cfg.Queues.EvidenceIn:           &c.Queues.EvidenceIn,
		cfg.Queues.EvidenceOut:          &c.Queues.EvidenceOut,
		cfg.Queues.LabelIn:              &c.Queues.LabelIn,
		cfg.Queues.LabelOut:             &c.Queues.LabelOut,
	}
}

// Resolve looks up every workflow resource by name. Any missing or ambiguous
// resource yields a services.ErrConfiguration error.
func Resolve(ctx context.Context, src Source, cfg *config.Config) (*Catalog, error) {
	c := &Catalog{}
	var err error
	if c.Corpus, err = CorpusByName(ctx, src, cfg.Corpus.Test); err != nil {
		return nil, err
	}
	for _, spec := range c.layerSpecs(cfg) {
		if *spec.target, err = LayerByName(ctx, src, c.Corpus.ID, spec.name); err != nil {
			return nil, err
		}
		if spec.target.DataType != spec.dataType {
			return nil, services.Wrap(services.ErrConfiguration, "catalog", "resolve layer",
				fmt.Sprintf("layer %q has data type %q, expected %q", spec.name, spec.target.DataType, spec.dataType), nil)
		}
	}
	for name, target := range c.queueSpecs(cfg) {
		if *target, err = QueueByName(ctx, src, name); err != nil {
			return nil, err
		}
	}
	if c.RobotEvidence, err = PrincipalByName(ctx, src, store.PrincipalUser, cfg.Principals.RobotEvidence); err != nil {
		return nil, err
	}
	if c.RobotLabel, err = PrincipalByName(ctx, src, store.PrincipalUser, cfg.Principals.RobotLabel); err != nil {
		return nil, err
	}
	return c, nil
}

// CorpusByName resolves a corpus.
func CorpusByName(ctx context.Context, src store.CorpusStore, name string) (store.Corpus, error) {
	corpora, err := src.Corpora(ctx)
	if err != nil {
		return store.Corpus{}, err
	}
	return unique(corpora, name, "corpus", func(c store.Corpus) string { return c.Name })
}

// LayerByName resolves a live layer of a corpus.
func LayerByName(ctx context.Context, src store.LayerStore, corpusID, name string) (store.Layer, error) {
	layers, err := src.Layers(ctx, corpusID, "")
	if err != nil {
		return store.Layer{}, err
	}
	return unique(layers, name, "layer", func(l store.Layer) string { return l.Name })
}

// QueueByName resolves a queue.
func QueueByName(ctx context.Context, src store.QueueStore, name string) (store.Queue, error) {
	queues, err := src.Queues(ctx)
	if err != nil {
		return store.Queue{}, err
	}
	return unique(queues, name, "queue", func(q store.Queue) string { return q.Name })
}

// PrincipalByName resolves a user or group.
func PrincipalByName(ctx context.Context, src store.PrincipalStore, kind store.PrincipalKind, name string) (store.Principal, error) {
	principals, err := src.Principals(ctx, kind)
	if err != nil {
		return store.Principal{}, err
	}
	return unique(principals, name, string(kind), func(p store.Principal) string { return p.Name })
}

func unique[T any](values []T, name, kind string, nameOf func(T) string) (T, error) {
	var (
		match T
		count int
	)
	for _, v := range values {
		if nameOf(v) == name {
			match = v
			count++
		}
	}
	switch count {
	case 1:
		return match, nil
	case 0:
		var zero T
		return zero, services.Wrap(services.ErrConfiguration, "catalog", "resolve "+kind,
			fmt.Sprintf("could not find any %s with name %q", kind, name), ErrMissing)
	default:
		var zero T
		return zero, services.Wrap(services.ErrConfiguration, "catalog", "resolve "+kind,
			fmt.Sprintf("found too many (%d) %ss with name %q", count, kind, name), nil)
	}
}
