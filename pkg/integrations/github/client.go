package github

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/matzehuels/scmenrich/pkg/cache"
	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/integrations"
)

const (
	// DefaultEndpoint is the public GitHub GraphQL API.
	DefaultEndpoint = "https://api.github.com/graphql"

	// DefaultMetadataPath is where extension descriptors live in a module.
	DefaultMetadataPath = "runtime/src/main/resources/META-INF/"
)

var repoURLPattern = regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/]+)/([^/?#]+?)(?:\.git)?(?:[/?#].*)?$`)

// Config configures a [Client]. Token is the only credential; an empty
// token puts the client in degraded mode.
type Config struct {
	Endpoint     string
	Token        string
	MetadataPath string
	Timeout      time.Duration
	TTL          time.Duration
}

// Client queries repository metadata from the GitHub GraphQL API.
type Client struct {
	*integrations.Client
	keyer        cache.Keyer
	endpoint     string
	metadataPath string
	degraded     bool
}

// NewClient creates a GitHub client. A nil cache disables caching; a nil
// keyer uses [cache.NewDefaultKeyer].
func NewClient(c cache.Cache, keyer cache.Keyer, cfg Config) *Client {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MetadataPath == "" {
		cfg.MetadataPath = DefaultMetadataPath
	}
	if cfg.TTL == 0 {
		cfg.TTL = cache.TTLMetadata
	}

	headers := map[string]string{"Accept": "application/json"}
	if cfg.Token != "" {
		headers["Authorization"] = "Bearer " + cfg.Token
	}

	base := integrations.NewClient(c, "github", cfg.TTL, headers)
	base.SetTimeout(cfg.Timeout)

	return &Client{
		Client:       base,
		keyer:        keyer,
		endpoint:     cfg.Endpoint,
		metadataPath: strings.TrimSuffix(cfg.MetadataPath, "/") + "/",
		degraded:     cfg.Token == "",
	}
}

// Degraded reports whether the client runs without a token.
func (c *Client) Degraded() bool { return c.degraded }

// FetchSourceControl looks up repoURL. artifactID, when non-empty, adds the
// two subfolder probes for multi-module repositories. If refresh is true,
// cached data is bypassed.
//
// Without a token it returns immediately with a degraded result and no
// error. An unparsable URL is an INVALID_INPUT error.
func (c *Client) FetchSourceControl(ctx context.Context, repoURL, artifactID string, refresh bool) (*Metadata, error) {
	owner, project, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	if c.degraded {
		return &Metadata{URL: repoURL, Owner: owner, Project: project, Degraded: true}, nil
	}

	key := c.keyer.MetadataKey(owner, project, cache.MetadataKeyOpts{
		ArtifactID:   artifactID,
		MetadataPath: c.metadataPath,
		Endpoint:     c.endpoint,
	})

	var m Metadata
	err = c.Cached(ctx, key, refresh, &m, func() error {
		return c.query(ctx, owner, project, artifactID, &m)
	})
	if err != nil {
		return nil, err
	}
	m.URL = repoURL
	return &m, nil
}

func (c *Client) query(ctx context.Context, owner, project, artifactID string, m *Metadata) error {
	shortID := ShortArtifactID(artifactID, project)
	req := graphQLRequest{
		Query: metadataQuery,
		Variables: map[string]any{
			"owner":              owner,
			"name":               project,
			"rootExpr":           "HEAD:" + c.metadataPath,
			"subfolderExpr":      "HEAD:" + artifactID + "/" + c.metadataPath,
			"shortSubfolderExpr": "HEAD:" + shortID + "/" + c.metadataPath,
			"hasArtifact":        artifactID != "",
		},
	}

	var resp graphQLResponse
	if err := c.PostJSON(ctx, c.endpoint, req, &resp); err != nil {
		return err
	}
	if err := responseError(resp.Errors, owner, project); err != nil {
		return err
	}

	if resp.Data == nil {
		return scmerrors.New(scmerrors.ErrCodeContract, "graphql response for %s/%s has no data", owner, project)
	}
	repo, ownerData := resp.Data.Repository, resp.Data.RepositoryOwner
	switch {
	case repo == nil:
		return scmerrors.New(scmerrors.ErrCodeContract, "graphql response for %s/%s has no repository", owner, project)
	case ownerData == nil:
		return scmerrors.New(scmerrors.ErrCodeContract, "graphql response for %s/%s has no repositoryOwner", owner, project)
	case repo.Issues == nil:
		return scmerrors.New(scmerrors.ErrCodeContract, "graphql response for %s/%s has no issues", owner, project)
	}

	issues := repo.Issues.TotalCount
	*m = Metadata{
		Owner:   owner,
		Project: project,
		Issues:  &issues,
		Listings: Listings{
			Root:           repo.MetaInfs.entries(),
			Subfolder:      repo.SubfolderMetaInfs.entries(),
			ShortSubfolder: repo.ShortenedSubfolderMetaInfs.entries(),
		},
		OpenGraphImageURL: repo.OpenGraphImageURL,
		OwnerAvatarURL:    ownerData.AvatarURL,
	}
	if repo.DefaultBranchRef != nil {
		m.DefaultBranch = repo.DefaultBranchRef.Name
	}
	return nil
}

func responseError(errs []graphQLError, owner, project string) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	code := scmerrors.ErrCodeAPI
	for i, e := range errs {
		msgs[i] = e.Message
		if e.Type == "NOT_FOUND" {
			code = scmerrors.ErrCodeNotFound
		}
	}
	return scmerrors.New(code, "github %s/%s: %s", owner, project, strings.Join(msgs, "; "))
}

// ParseRepoURL extracts owner and project from a GitHub repository URL.
// git@, git://, ssh:// and git+ forms are accepted, as are deep links into
// the repository.
func ParseRepoURL(raw string) (owner, project string, err error) {
	m := repoURLPattern.FindStringSubmatch(integrations.NormalizeRepoURL(raw))
	if len(m) < 3 {
		return "", "", scmerrors.New(scmerrors.ErrCodeInvalidInput, "not a GitHub repository URL: %q", raw)
	}
	return m[1], m[2], nil
}

// ShortArtifactID strips the "<project>-" prefix from artifactID. Some
// multi-module repositories name their folders after that shorter form.
func ShortArtifactID(artifactID, project string) string {
	return strings.Replace(artifactID, project+"-", "", 1)
}
