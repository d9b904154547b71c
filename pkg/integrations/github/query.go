package github

// metadataQuery fetches everything the resolver needs in one round trip.
// The two subfolder probes are skipped when no artifact id is known.
const metadataQuery = `query SourceControlInfo(
  $owner: String!
  $name: String!
  $rootExpr: String!
  $subfolderExpr: String!
  $shortSubfolderExpr: String!
  $hasArtifact: Boolean!
) {
  repository(owner: $owner, name: $name) {
    issues(states: OPEN) {
      totalCount
    }
    defaultBranchRef {
      name
    }
    metaInfs: object(expression: $rootExpr) {
      ... on Tree {
        entries {
          path
        }
      }
    }
    subfolderMetaInfs: object(expression: $subfolderExpr) @include(if: $hasArtifact) {
      ... on Tree {
        entries {
          path
        }
      }
    }
    shortenedSubfolderMetaInfs: object(expression: $shortSubfolderExpr) @include(if: $hasArtifact) {
      ... on Tree {
        entries {
          path
        }
      }
    }
    openGraphImageUrl
  }
  repositoryOwner(login: $owner) {
    avatarUrl
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   *queryData     `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type graphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type queryData struct {
	Repository      *repositoryNode `json:"repository"`
	RepositoryOwner *ownerNode      `json:"repositoryOwner"`
}

type repositoryNode struct {
	Issues *struct {
		TotalCount int `json:"totalCount"`
	} `json:"issues"`
	DefaultBranchRef *struct {
		Name string `json:"name"`
	} `json:"defaultBranchRef"`
	MetaInfs                   *treeNode `json:"metaInfs"`
	SubfolderMetaInfs          *treeNode `json:"subfolderMetaInfs"`
	ShortenedSubfolderMetaInfs *treeNode `json:"shortenedSubfolderMetaInfs"`
	OpenGraphImageURL          string    `json:"openGraphImageUrl"`
}

type ownerNode struct {
	AvatarURL string `json:"avatarUrl"`
}

type treeNode struct {
	Entries []TreeEntry `json:"entries"`
}

func (t *treeNode) entries() []TreeEntry {
	if t == nil {
		return nil
	}
	return t.Entries
}
