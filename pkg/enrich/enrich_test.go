package enrich

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/scmenrich/pkg/assets"
	"github.com/matzehuels/scmenrich/pkg/cache"
	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/extension"
	"github.com/matzehuels/scmenrich/pkg/graph"
	"github.com/matzehuels/scmenrich/pkg/identity"
	"github.com/matzehuels/scmenrich/pkg/integrations/github"
	"github.com/matzehuels/scmenrich/pkg/integrations/github/githubtest"
	"github.com/matzehuels/scmenrich/pkg/preview"
)

const (
	metaInf     = "runtime/src/main/resources/META-INF/"
	customImage = "https://repository-images.githubusercontent.com/437045322/39ad4dec-e606"
)

func entries(paths ...string) []github.TreeEntry {
	out := make([]github.TreeEntry, len(paths))
	for i, p := range paths {
		out[i] = github.TreeEntry{Path: p}
	}
	return out
}

func TestResolveDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		entries []github.TreeEntry
		want    string
	}{
		{"no listings", nil, ""},
		{"no match", entries(metaInf+"beans.xml"), ""},
		{"single match", entries(metaInf+"beans.xml", metaInf+"quarkus-extension.yaml"), metaInf + "quarkus-extension.yaml"},
		{"match in subfolder", entries("widget-ext/" + metaInf + "quarkus-extension.yaml"), "widget-ext/" + metaInf + "quarkus-extension.yaml"},
		{"two matches", entries(metaInf+"quarkus-extension.yaml", "widget/"+metaInf+"quarkus-extension.yaml"), ""},
		{"same path twice", entries("ext/"+metaInf+"quarkus-extension.yaml", "ext/"+metaInf+"quarkus-extension.yaml"), "ext/" + metaInf + "quarkus-extension.yaml"},
		{"suffix without separator", entries(metaInf + "notquarkus-extension.yaml"), ""},
		{"traversal ignored", entries("../" + metaInf + "quarkus-extension.yaml"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveDescriptor(tt.entries, DefaultDescriptorFile); got != tt.want {
				t.Errorf("ResolveDescriptor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCandidates(t *testing.T) {
	got := Candidates(entries(
		"b/"+metaInf+"quarkus-extension.yaml",
		"a/"+metaInf+"quarkus-extension.yaml",
		"b/"+metaInf+"quarkus-extension.yaml",
		"../"+metaInf+"quarkus-extension.yaml",
	), DefaultDescriptorFile)
	if len(got) != 2 || got[0] != "a/"+metaInf+"quarkus-extension.yaml" || got[1] != "b/"+metaInf+"quarkus-extension.yaml" {
		t.Errorf("Candidates() = %v", got)
	}
}

func TestDescriptorURL(t *testing.T) {
	got := DescriptorURL("acme", "widget", "main", "x.yaml")
	if want := "https://github.com/acme/widget/blob/main/x.yaml"; got != want {
		t.Errorf("DescriptorURL() = %q, want %q", got, want)
	}
}

func TestEnrichDescriptorURLFromDeepLink(t *testing.T) {
	repo := widgetRepo()
	repo.Trees = map[string][]string{"HEAD:" + metaInf: {metaInf + "quarkus-extension.yaml"}}
	fx := newFixture(t, "tok", repo)

	ext := widgetExtension()
	ext.Metadata.Maven = nil
	for _, src := range []string{
		"https://github.com/acme/widget/tree/main/ext",
		"git@github.com:acme/widget.git",
		"https://github.com/acme/widget/",
	} {
		ext.Metadata.SourceControl = src
		res, err := fx.resolver.Resolve(context.Background(), ext, false)
		if err != nil {
			t.Fatalf("%s: %v", src, err)
		}
		want := "https://github.com/acme/widget/blob/main/" + metaInf + "quarkus-extension.yaml"
		if res.Info.ExtensionYamlURL != want {
			t.Errorf("%s: ExtensionYamlURL = %q, want %q", src, res.Info.ExtensionYamlURL, want)
		}
	}
}

func TestIsCustomizedImage(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{customImage, true},
		{"https://opengraph.githubassets.com/3f2c/acme/widget", false},
		{"https://example.com/githubusercontent/preview.png", false},
		{"", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		if got := IsCustomizedImage(tt.url, DefaultCustomImageMarker); got != tt.want {
			t.Errorf("IsCustomizedImage(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

// recordingFetcher stands in for the fetch stage and checks that Track
// only runs once the record is in the graph.
type recordingFetcher struct {
	t       *testing.T
	graph   graph.Store
	err     error
	fetched []string
	tracked []string
}

func (f *recordingFetcher) Fetch(ctx context.Context, recordID, imageURL string) (*preview.Fetched, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.fetched = append(f.fetched, imageURL)
	return &preview.Fetched{
		RecordID:  recordID,
		Asset:     &assets.Asset{ID: "asset-1", Name: "39ad4dec-e606.png", Path: "ab/cd/39ad4dec-e606.png"},
		Predicted: "smartcrop-39ad4dec-e606.png",
	}, nil
}

func (f *recordingFetcher) Track(ctx context.Context, res *preview.Fetched) {
	if _, err := f.graph.Get(ctx, res.RecordID); err != nil {
		f.t.Errorf("Track before emit: %v", err)
	}
	f.tracked = append(f.tracked, res.Asset.ID)
}

func widgetRepo() githubtest.Repo {
	trees := make(map[string][]string)
	trees["HEAD:"+metaInf] = []string{metaInf + "beans.xml"}
	trees["HEAD:widget-ext/"+metaInf] = []string{"widget-ext/" + metaInf + "quarkus-extension.yaml"}
	trees["HEAD:ext/"+metaInf] = []string{"ext/" + metaInf + "services"}

	return githubtest.Repo{
		Owner:             "acme",
		Name:              "widget",
		Issues:            5,
		DefaultBranch:     "main",
		Trees:             trees,
		OpenGraphImageURL: customImage,
		AvatarURL:         "https://avatars.githubusercontent.com/u/1",
	}
}

func widgetExtension() *extension.Extension {
	return &extension.Extension{
		Name: "Widget",
		Metadata: extension.Metadata{
			SourceControl: "https://github.com/acme/widget",
			Maven:         &extension.Maven{GroupID: "io.acme", ArtifactID: "widget-ext"},
		},
	}
}

type fixture struct {
	logs     *bytes.Buffer
	resolver *Resolver
	graph    *graph.MemoryStore
	fetcher  *recordingFetcher
	server   *githubtest.Server
}

func newFixture(t *testing.T, token string, repos ...githubtest.Repo) *fixture {
	t.Helper()
	srv := githubtest.NewServer(t, repos...)
	client := github.NewClient(cache.NewNullCache(), nil, github.Config{Endpoint: srv.Endpoint(), Token: token})
	client.SetRetry(1, time.Millisecond)

	g := graph.NewMemoryStore()
	f := &recordingFetcher{t: t, graph: g}
	var logs bytes.Buffer
	return &fixture{
		logs:     &logs,
		resolver: NewResolver(client, f, g, Config{}, log.New(&logs)),
		graph:    g,
		fetcher:  f,
		server:   srv,
	}
}

func TestEnrich(t *testing.T) {
	fx := newFixture(t, "tok", widgetRepo())
	ctx := context.Background()

	res, err := fx.resolver.Enrich(ctx, widgetExtension(), false)
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}
	if res.Skipped || res.Degraded {
		t.Fatalf("result = %+v", res)
	}

	info := res.Info
	if info.ID != identity.NodeID("acme", "widget") {
		t.Errorf("ID = %q", info.ID)
	}
	if info.URL != "https://github.com/acme/widget" || info.Owner != "acme" || info.Project != "widget" {
		t.Errorf("coordinates = %+v", info)
	}
	if info.Issues == nil || *info.Issues != 5 {
		t.Errorf("Issues = %v, want 5", info.Issues)
	}
	if info.OwnerImageURL != "https://avatars.githubusercontent.com/u/1" {
		t.Errorf("OwnerImageURL = %q", info.OwnerImageURL)
	}
	wantYaml := "https://github.com/acme/widget/blob/main/widget-ext/" + metaInf + "quarkus-extension.yaml"
	if info.ExtensionYamlURL != wantYaml {
		t.Errorf("ExtensionYamlURL = %q, want %q", info.ExtensionYamlURL, wantYaml)
	}
	if info.SocialImage != customImage {
		t.Errorf("SocialImage = %q", info.SocialImage)
	}
	if info.ProjectImage != "smartcrop-39ad4dec-e606.png" {
		t.Errorf("ProjectImage = %q", info.ProjectImage)
	}
	if info.ContentDigest != identity.ContentDigest(info) {
		t.Errorf("ContentDigest = %q, want %q", info.ContentDigest, identity.ContentDigest(info))
	}

	stored, err := fx.graph.Get(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ContentDigest != info.ContentDigest || stored.ProjectImage != info.ProjectImage {
		t.Errorf("stored = %+v", stored)
	}
	if len(fx.fetcher.tracked) != 1 {
		t.Errorf("tracked = %v", fx.fetcher.tracked)
	}
}

func TestEnrichIsDeterministic(t *testing.T) {
	fx := newFixture(t, "tok", widgetRepo())
	ctx := context.Background()

	a, err := fx.resolver.Enrich(ctx, widgetExtension(), false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := fx.resolver.Enrich(ctx, widgetExtension(), false)
	if err != nil {
		t.Fatal(err)
	}
	if a.Info.ID != b.Info.ID || a.Info.ContentDigest != b.Info.ContentDigest {
		t.Errorf("reruns differ: %+v vs %+v", a.Info, b.Info)
	}
	if fx.graph.Len() != 1 {
		t.Errorf("graph has %d records after rerun, want 1", fx.graph.Len())
	}
}

func TestEnrichGeneratedImage(t *testing.T) {
	repo := widgetRepo()
	repo.OpenGraphImageURL = "https://opengraph.githubassets.com/3f2c/acme/widget"
	fx := newFixture(t, "tok", repo)

	res, err := fx.resolver.Enrich(context.Background(), widgetExtension(), false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Info.SocialImage != "" || res.Info.ProjectImage != "" || res.Image != nil {
		t.Errorf("generated image should be ignored: %+v", res.Info)
	}
	if len(fx.fetcher.fetched) != 0 {
		t.Errorf("fetched = %v", fx.fetcher.fetched)
	}
}

func TestEnrichAmbiguousDescriptor(t *testing.T) {
	repo := widgetRepo()
	repo.Trees["HEAD:ext/"+metaInf] = []string{"ext/" + metaInf + "quarkus-extension.yaml"}
	fx := newFixture(t, "tok", repo)

	ext := widgetExtension()
	ext.Metadata.Maven.ArtifactID = "widget-ext" // short form "ext"
	res, err := fx.resolver.Enrich(context.Background(), ext, false)
	if err != nil {
		t.Fatalf("ambiguous match must not fail: %v", err)
	}
	if res.Info.ExtensionYamlURL != "" {
		t.Errorf("ExtensionYamlURL = %q, want unset", res.Info.ExtensionYamlURL)
	}
}

func TestEnrichWithoutArtifactProbesRootOnly(t *testing.T) {
	repo := widgetRepo()
	repo.Trees["HEAD:"+metaInf] = []string{metaInf + "quarkus-extension.yaml"}
	fx := newFixture(t, "tok", repo)

	ext := widgetExtension()
	ext.Metadata.Maven = nil
	res, err := fx.resolver.Enrich(context.Background(), ext, false)
	if err != nil {
		t.Fatal(err)
	}
	want := "https://github.com/acme/widget/blob/main/" + metaInf + "quarkus-extension.yaml"
	if res.Info.ExtensionYamlURL != want {
		t.Errorf("ExtensionYamlURL = %q, want %q", res.Info.ExtensionYamlURL, want)
	}
}

func TestEnrichDegraded(t *testing.T) {
	fx := newFixture(t, "", widgetRepo())
	ctx := context.Background()

	res, err := fx.resolver.Enrich(ctx, widgetExtension(), false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Degraded {
		t.Error("expected degraded result")
	}
	if fx.server.Requests() != 0 {
		t.Errorf("degraded mode made %d requests", fx.server.Requests())
	}
	info := res.Info
	if info.Owner != "acme" || info.Project != "widget" || info.ID != identity.NodeID("acme", "widget") {
		t.Errorf("info = %+v", info)
	}
	if info.Issues != nil || info.ExtensionYamlURL != "" || info.SocialImage != "" || info.ProjectImage != "" {
		t.Errorf("degraded record carries API data: %+v", info)
	}
	if _, err := fx.graph.Get(ctx, info.ID); err != nil {
		t.Errorf("degraded record not emitted: %v", err)
	}
	out := fx.logs.String()
	if !strings.Contains(out, "WARN") || !strings.Contains(out, string(scmerrors.ErrCodeDegraded)) {
		t.Errorf("missing degraded warning in log: %q", out)
	}
}

func TestEnrichSkips(t *testing.T) {
	fx := newFixture(t, "tok", widgetRepo())

	tests := []struct {
		name string
		ext  *extension.Extension
	}{
		{"other type", &extension.Extension{Type: "Guide", Metadata: extension.Metadata{SourceControl: "https://github.com/acme/widget"}}},
		{"no repository", &extension.Extension{Name: "Widget"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := fx.resolver.Enrich(context.Background(), tt.ext, false)
			if err != nil || !res.Skipped {
				t.Errorf("Enrich() = %+v, %v; want skipped", res, err)
			}
		})
	}
	if fx.server.Requests() != 0 || fx.graph.Len() != 0 {
		t.Error("skipped records must not be looked up or emitted")
	}
}

func TestEnrichFailures(t *testing.T) {
	tests := []struct {
		name string
		ext  *extension.Extension
		repo githubtest.Repo
		code scmerrors.Code
	}{
		{
			name: "not a github url",
			ext:  &extension.Extension{Metadata: extension.Metadata{SourceControl: "https://gitlab.com/acme/widget"}},
			repo: widgetRepo(),
			code: scmerrors.ErrCodeInvalidInput,
		},
		{
			name: "unknown repository",
			ext:  &extension.Extension{Metadata: extension.Metadata{SourceControl: "https://github.com/acme/gone"}},
			repo: widgetRepo(),
			code: scmerrors.ErrCodeNotFound,
		},
		{
			name: "schema change",
			ext:  widgetExtension(),
			repo: githubtest.Repo{Owner: "acme", Name: "widget", Raw: `{"data":{"repository":{},"repositoryOwner":{}}}`},
			code: scmerrors.ErrCodeContract,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, "tok", tt.repo)
			_, err := fx.resolver.Enrich(context.Background(), tt.ext, false)
			if !scmerrors.Is(err, tt.code) {
				t.Errorf("Enrich() error = %v, want %s", err, tt.code)
			}
			if fx.graph.Len() != 0 {
				t.Error("failed record emitted")
			}
		})
	}
}

func TestEnrichFetchFailureFailsRecord(t *testing.T) {
	fx := newFixture(t, "tok", widgetRepo())
	fx.fetcher.err = scmerrors.New(scmerrors.ErrCodeTransform, "not an image")

	_, err := fx.resolver.Enrich(context.Background(), widgetExtension(), false)
	if !scmerrors.Is(err, scmerrors.ErrCodeTransform) {
		t.Errorf("Enrich() error = %v", err)
	}
	if fx.graph.Len() != 0 {
		t.Error("record emitted despite failed fetch")
	}
}
