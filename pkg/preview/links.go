package preview

import (
	"context"
	"sort"
	"sync"
)

// Link pairs the crop name predicted at fetch time with the name the crop
// stage actually produced.
type Link struct {
	SourceAssetID string `json:"sourceAssetId"`
	RecordID      string `json:"recordId,omitempty"`
	Predicted     string `json:"predicted,omitempty"`
	Actual        string `json:"actual,omitempty"`
}

// Complete reports whether both sides have reported.
func (l Link) Complete() bool { return l.Predicted != "" && l.Actual != "" }

// Dangling reports whether the prediction missed.
func (l Link) Dangling() bool { return l.Complete() && l.Predicted != l.Actual }

// Links is the pending-link table. Either side may report first; the
// second report completes the link and fires OnResolved.
type Links struct {
	// OnResolved, if set, is called once per completed link, outside the
	// table's lock.
	OnResolved func(ctx context.Context, l Link)

	mu       sync.Mutex
	bySource map[string]*Link
}

// NewLinks creates an empty table.
func NewLinks() *Links {
	return &Links{bySource: make(map[string]*Link)}
}

// Expect records a prediction for the crop of sourceAssetID.
func (t *Links) Expect(ctx context.Context, sourceAssetID, recordID, predicted string) {
	t.update(ctx, sourceAssetID, func(l *Link) {
		l.RecordID = recordID
		l.Predicted = predicted
	})
}

// Resolve records the actual crop name for sourceAssetID.
func (t *Links) Resolve(ctx context.Context, sourceAssetID, actual string) {
	t.update(ctx, sourceAssetID, func(l *Link) {
		l.Actual = actual
	})
}

func (t *Links) update(ctx context.Context, id string, fn func(*Link)) {
	t.mu.Lock()
	l, ok := t.bySource[id]
	if !ok {
		l = &Link{SourceAssetID: id}
		t.bySource[id] = l
	}
	wasComplete := l.Complete()
	fn(l)
	done := !wasComplete && l.Complete()
	snapshot := *l
	cb := t.OnResolved
	t.mu.Unlock()

	if done && cb != nil {
		cb(ctx, snapshot)
	}
}

// Get returns the link for sourceAssetID.
func (t *Links) Get(sourceAssetID string) (Link, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.bySource[sourceAssetID]
	if !ok {
		return Link{}, false
	}
	return *l, true
}

// Pending returns predictions still waiting for their crop, sorted by
// source asset id.
func (t *Links) Pending() []Link {
	return t.filter(func(l *Link) bool { return l.Predicted != "" && l.Actual == "" })
}

// Dangling returns completed links whose prediction missed.
func (t *Links) Dangling() []Link {
	return t.filter(func(l *Link) bool { return l.Dangling() })
}

func (t *Links) filter(keep func(*Link) bool) []Link {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Link
	for _, l := range t.bySource {
		if keep(l) {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceAssetID < out[j].SourceAssetID })
	return out
}
