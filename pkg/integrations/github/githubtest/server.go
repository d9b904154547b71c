// Package githubtest provides an in-process fake of the GitHub GraphQL
// endpoint for tests.
package githubtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// Repo is a repository served by the fake.
type Repo struct {
	Owner         string
	Name          string
	Issues        int
	DefaultBranch string

	// Trees maps an object expression (e.g. "HEAD:runtime/src/main/resources/META-INF/")
	// to the entry paths it lists. Missing expressions resolve to null.
	Trees map[string][]string

	OpenGraphImageURL string
	AvatarURL         string

	// Raw, when set, is written verbatim instead of a generated response.
	Raw string
}

// Server is a fake GraphQL endpoint.
type Server struct {
	*httptest.Server

	// Token is the bearer token the server requires. Empty accepts any.
	Token string

	requests atomic.Int32

	mu       sync.Mutex
	repos    map[string]Repo
	lastVars map[string]any
}

// NewServer starts a fake serving repos. It is closed when the test ends.
func NewServer(t testing.TB, repos ...Repo) *Server {
	t.Helper()
	s := &Server{repos: make(map[string]Repo)}
	for _, r := range repos {
		s.repos[r.Owner+"/"+r.Name] = r
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Endpoint returns the GraphQL URL.
func (s *Server) Endpoint() string { return s.URL + "/graphql" }

// Requests returns the number of GraphQL requests served.
func (s *Server) Requests() int { return int(s.requests.Load()) }

// LastVariables returns the variables of the most recent request.
func (s *Server) LastVariables() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastVars
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	if r.Method != http.MethodPost || r.URL.Path != "/graphql" {
		http.NotFound(w, r)
		return
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || (s.Token != "" && auth != "Bearer "+s.Token) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.lastVars = req.Variables
	s.mu.Unlock()

	owner, _ := req.Variables["owner"].(string)
	name, _ := req.Variables["name"].(string)

	w.Header().Set("Content-Type", "application/json")

	repo, ok := s.repos[owner+"/"+name]
	if !ok {
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"repository": nil, "repositoryOwner": nil},
			"errors": []map[string]any{{
				"type":    "NOT_FOUND",
				"message": "Could not resolve to a Repository with the name '" + owner + "/" + name + "'.",
			}},
		})
		return
	}
	if repo.Raw != "" {
		w.Write([]byte(repo.Raw))
		return
	}

	tree := func(varName string) any {
		expr, _ := req.Variables[varName].(string)
		paths, ok := repo.Trees[expr]
		if !ok {
			return nil
		}
		entries := make([]map[string]string, len(paths))
		for i, p := range paths {
			entries[i] = map[string]string{"path": p}
		}
		return map[string]any{"entries": entries}
	}

	repository := map[string]any{
		"issues":            map[string]any{"totalCount": repo.Issues},
		"defaultBranchRef":  map[string]any{"name": repo.DefaultBranch},
		"metaInfs":          tree("rootExpr"),
		"openGraphImageUrl": repo.OpenGraphImageURL,
	}
	if include, _ := req.Variables["hasArtifact"].(bool); include {
		repository["subfolderMetaInfs"] = tree("subfolderExpr")
		repository["shortenedSubfolderMetaInfs"] = tree("shortSubfolderExpr")
	}

	json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{
			"repository":      repository,
			"repositoryOwner": map[string]any{"avatarUrl": repo.AvatarURL},
		},
	})
}
