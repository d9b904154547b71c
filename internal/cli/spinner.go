package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/scmenrich/pkg/observability"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows "<verb> n/total <noun>" on stderr while records are
// processed. It stops when its context is cancelled.
type Spinner struct {
	verb  string
	noun  string
	total int
	count atomic.Int64

	out     io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
	mu      sync.Mutex
	width   int
}

// newProgressSpinner creates a spinner counting up to total.
func newProgressSpinner(ctx context.Context, verb string, total int, noun string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		verb:    verb,
		noun:    noun,
		total:   total,
		out:     os.Stderr,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Message renders the current progress line.
func (s *Spinner) Message() string {
	return fmt.Sprintf("%s %d/%d %s...", s.verb, s.count.Load(), s.total, s.noun)
}

// Advance counts one finished item.
func (s *Spinner) Advance() {
	s.count.Add(1)
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				msg := s.Message()
				s.mu.Lock()
				s.width = max(s.width, len(msg))
				fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(spinnerFrames[i%len(spinnerFrames)]), StyleDim.Render(msg))
				s.mu.Unlock()
			}
		}
	}()
}

// Stop stops the spinner and clears the line. It must follow Start.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
	<-s.stopped
	s.clearLine()
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width+4))
}

// Cancelled returns true if the spinner was stopped due to context cancellation.
func (s *Spinner) Cancelled() bool {
	return s.ctx.Err() != nil
}

// spinnerHooks advances a spinner for every finished record and keeps
// logging like [logHooks].
type spinnerHooks struct {
	logHooks
	spinner *Spinner
}

func (h spinnerHooks) OnEnrichComplete(ctx context.Context, owner, project string, degraded bool, d time.Duration, err error) {
	h.spinner.Advance()
	h.logHooks.OnEnrichComplete(ctx, owner, project, degraded, d, err)
}

// trackEnrichment routes enrichment events to s until the returned func
// restores plain logging hooks.
func trackEnrichment(l *log.Logger, s *Spinner) func() {
	h := logHooks{logger: l.WithPrefix("hooks")}
	observability.SetEnrichHooks(spinnerHooks{logHooks: h, spinner: s})
	return func() { observability.SetEnrichHooks(h) }
}
