//go:build integration

package graph

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/scmenrich/pkg/extension"
)

func TestMongoStoreIntegration(t *testing.T) {
	uri := os.Getenv("SCMENRICH_MONGO_URI")
	if uri == "" {
		t.Skip("SCMENRICH_MONGO_URI not set")
	}
	ctx := context.Background()

	s, err := NewMongoStore(ctx, MongoConfig{URI: uri, Collection: "test-" + uuid.NewString()})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = s.coll.Drop(ctx)
		s.Close()
	}()

	for _, id := range []string{"b", "a"} {
		if err := s.Emit(ctx, &extension.SourceControlInfo{ID: id, URL: "https://github.com/acme/" + id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Emit(ctx, &extension.SourceControlInfo{ID: "a", URL: "https://github.com/acme/a", Owner: "acme"}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProjectImage(ctx, "a", "smartcrop-a.png"); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "a" || list[0].Owner != "acme" || list[0].ProjectImage != "smartcrop-a.png" {
		t.Errorf("List() = %+v", list)
	}
}
