package pipeline

import (
	"time"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/preview"
)

// Failure is one record that could not be enriched.
type Failure struct {
	Extension string
	Code      scmerrors.Code
	Err       error
}

// Summary reports what a run did.
type Summary struct {
	Total    int
	Enriched int
	Degraded int
	Skipped  int
	Failed   []Failure

	Fetched     int
	Cropped     int
	CropIgnored int
	CropFailed  int

	// Pending predictions never matched by a crop, and completed links
	// whose prediction missed.
	Pending  []preview.Link
	Dangling []preview.Link

	Duration time.Duration
}

// FailuresByCode groups failures by error code.
func (s *Summary) FailuresByCode() map[scmerrors.Code]int {
	out := make(map[scmerrors.Code]int)
	for _, f := range s.Failed {
		out[f.Code]++
	}
	return out
}

// OK reports whether every record was enriched or skipped.
func (s *Summary) OK() bool {
	return len(s.Failed) == 0
}

func (s *Summary) addCropStats(before, after preview.CropStats) {
	s.Cropped = after.Cropped - before.Cropped
	s.CropIgnored = after.Ignored - before.Ignored
	s.CropFailed = after.Failed - before.Failed
}
