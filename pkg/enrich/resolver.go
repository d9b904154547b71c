package enrich

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/extension"
	"github.com/matzehuels/scmenrich/pkg/graph"
	"github.com/matzehuels/scmenrich/pkg/identity"
	"github.com/matzehuels/scmenrich/pkg/integrations/github"
	"github.com/matzehuels/scmenrich/pkg/observability"
	"github.com/matzehuels/scmenrich/pkg/preview"
)

// MetadataSource looks up repository metadata. [github.Client] implements it.
type MetadataSource interface {
	FetchSourceControl(ctx context.Context, repoURL, artifactID string, refresh bool) (*github.Metadata, error)
}

// ImageFetcher is the asset fetch stage. [preview.Fetcher] implements it.
type ImageFetcher interface {
	Fetch(ctx context.Context, recordID, imageURL string) (*preview.Fetched, error)
	Track(ctx context.Context, res *preview.Fetched)
}

// Config holds the resolver's policies. Zero values take the defaults.
type Config struct {
	NodeType          string
	DescriptorFile    string
	CustomImageMarker string
}

func (c *Config) setDefaults() {
	if c.NodeType == "" {
		c.NodeType = extension.DefaultType
	}
	if c.DescriptorFile == "" {
		c.DescriptorFile = DefaultDescriptorFile
	}
	if c.CustomImageMarker == "" {
		c.CustomImageMarker = DefaultCustomImageMarker
	}
}

// Result is the outcome of enriching one record.
type Result struct {
	Info     *extension.SourceControlInfo
	Degraded bool
	Skipped  bool

	// Image is set when a social image was fetched.
	Image *preview.Fetched
}

// Resolver enriches extension records. It is safe for concurrent use.
type Resolver struct {
	meta    MetadataSource
	fetcher ImageFetcher
	graph   graph.Store
	cfg     Config
	logger  *log.Logger
}

// NewResolver creates a resolver. fetcher may be nil, in which case social
// images are ignored: a social image is only recorded together with the
// predicted name of its crop.
func NewResolver(meta MetadataSource, fetcher ImageFetcher, g graph.Store, cfg Config, logger *log.Logger) *Resolver {
	cfg.setDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{meta: meta, fetcher: fetcher, graph: g, cfg: cfg, logger: logger}
}

// Enrich processes ext and publishes the result. Records of another type
// or without a repository URL are skipped without error. A failure affects
// only this record.
func (r *Resolver) Enrich(ctx context.Context, ext *extension.Extension, refresh bool) (*Result, error) {
	res, err := r.Resolve(ctx, ext, refresh)
	if err != nil {
		return nil, err
	}
	if err := r.Publish(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Resolve builds the record for ext and fetches its social image without
// touching the content graph. Resolve may run concurrently; callers that
// need deterministic output publish the results in input order, since
// extensions sharing a repository share a record id.
func (r *Resolver) Resolve(ctx context.Context, ext *extension.Extension, refresh bool) (*Result, error) {
	if ext.TypeOrDefault() != r.cfg.NodeType || ext.SourceControlURL() == "" {
		return &Result{Skipped: true}, nil
	}

	owner, project, err := github.ParseRepoURL(ext.SourceControlURL())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	observability.Enrich().OnEnrichStart(ctx, owner, project)

	var res *Result
	md, err := r.meta.FetchSourceControl(ctx, ext.SourceControlURL(), ext.ArtifactID(), refresh)
	if err == nil {
		res, err = r.resolve(ctx, ext, md)
	}
	observability.Enrich().OnEnrichComplete(ctx, owner, project, res != nil && res.Degraded, time.Since(start), err)
	return res, err
}

// Publish emits a resolved record to the content graph and hands its
// fetched image to the crop rendezvous. Skipped results are ignored.
func (r *Resolver) Publish(ctx context.Context, res *Result) error {
	if res == nil || res.Skipped {
		return nil
	}
	if r.graph != nil {
		if err := r.graph.Emit(ctx, res.Info); err != nil {
			return err
		}
	}

	// Track only once the record is in the graph so a mismatch reported by
	// the crop stage can always be patched.
	if res.Image != nil {
		r.fetcher.Track(ctx, res.Image)
	}
	return nil
}

func (r *Resolver) resolve(ctx context.Context, ext *extension.Extension, md *github.Metadata) (*Result, error) {
	if md.Degraded {
		r.logger.Warn("no token, enriching without repository metadata",
			"code", scmerrors.ErrCodeDegraded, "extension", ext.Label(), "repo", md.Owner+"/"+md.Project)
	}

	info := &extension.SourceControlInfo{
		ID:            identity.NodeID(md.Owner, md.Project),
		URL:           ext.SourceControlURL(),
		Owner:         md.Owner,
		Project:       md.Project,
		Issues:        md.Issues,
		OwnerImageURL: md.OwnerAvatarURL,
	}

	if !md.Degraded {
		all := md.Listings.All()
		if path := ResolveDescriptor(all, r.cfg.DescriptorFile); path != "" {
			info.ExtensionYamlURL = DescriptorURL(md.Owner, md.Project, md.DefaultBranch, path)
		} else if c := Candidates(all, r.cfg.DescriptorFile); len(c) > 1 {
			r.logger.Debug("ambiguous descriptor, leaving it unset", "extension", ext.Label(), "candidates", c)
		}
		if r.fetcher != nil && IsCustomizedImage(md.OpenGraphImageURL, r.cfg.CustomImageMarker) {
			info.SocialImage = md.OpenGraphImageURL
		}
	}

	info.ContentDigest = identity.ContentDigest(info)

	res := &Result{Info: info, Degraded: md.Degraded}

	if info.SocialImage != "" {
		fetched, err := r.fetcher.Fetch(ctx, info.ID, info.SocialImage)
		if err != nil {
			return nil, err
		}
		info.ProjectImage = fetched.Predicted
		res.Image = fetched
	}

	return res, nil
}
