package patchnotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"patchnotes-bot/pkg/merges"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultInterval = 5 * time.Minute
	DefaultTimeout  = 15 * time.Second
)

var (
	ErrPollInFlight = errors.New("a poll is already in flight")
	ErrCursorRead   = errors.New("could not read cursor")
	ErrDispatch     = errors.New("could not dispatch announcement")
	ErrPersist      = errors.New("could not persist cursor")
)

type MergeSource interface {
	LatestQualifyingMerge(ctx context.Context) (*merges.Event, error)
}

type Announcer interface {
	Announce(ctx context.Context, event merges.Event) error
}

// CursorStore persists the id of the last announced merge. An empty id means nothing was announced yet.
type CursorStore interface {
	LastAnnounced(ctx context.Context) (string, error)
	SetLastAnnounced(ctx context.Context, id string) error
}

type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeNoMerge
	OutcomeNoChange
	OutcomeAnnounced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeNoMerge:
		return "no merge"
	case OutcomeNoChange:
		return "no change"
	case OutcomeAnnounced:
		return "announced"
	}
	return "unknown"
}

type PollerConfig struct {
	Interval time.Duration
	// Timeout bounds the github query and the dispatch separately.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Poller announces each new qualifying merge once. It is the only writer of the cursor.
type Poller struct {
	source    MergeSource
	announcer Announcer
	store     CursorStore

	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	inFlight *semaphore.Weighted
}

func NewPoller(source MergeSource, announcer Announcer, store CursorStore, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{
		source:    source,
		announcer: announcer,
		store:     store,
		interval:  cfg.Interval,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
		inFlight:  semaphore.NewWeighted(1),
	}
}

// Run polls once immediately and then again Interval after each poll completes, until ctx is done.
// Poll failures are logged and never end the loop.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("patchnotes: starting poller", slog.Duration("interval", p.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("patchnotes: poller stopped")
			return ctx.Err()
		case <-timer.C:
		}
		logger := p.logger.With(slog.String("poll.id", uuid.NewString()))
		outcome, err := p.pollOnce(ctx, logger)
		p.report(ctx, logger, outcome, err)
		timer.Reset(p.interval)
	}
}

// PollOnce runs a single poll cycle. It returns ErrPollInFlight without doing anything if another
// cycle is still running.
func (p *Poller) PollOnce(ctx context.Context) (Outcome, error) {
	return p.pollOnce(ctx, p.logger.With(slog.String("poll.id", uuid.NewString())))
}

func (p *Poller) pollOnce(ctx context.Context, logger *slog.Logger) (Outcome, error) {
	if !p.inFlight.TryAcquire(1) {
		return OutcomeFailed, ErrPollInFlight
	}
	defer p.inFlight.Release(1)

	logger.Debug("patchnotes: checking for new patch notes")
	event, err := p.latestMerge(ctx)
	if err != nil {
		return OutcomeFailed, err
	}
	if event == nil {
		logger.Debug("patchnotes: no merged pull request found")
		return OutcomeNoMerge, nil
	}

	lastID, err := p.store.LastAnnounced(ctx)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("%w: %w", ErrCursorRead, err)
	}
	logger.Debug("patchnotes: latest merge",
		slog.Int("pr.number", event.Number),
		slog.String("pr.id", event.ID),
		slog.String("cursor", lastID))
	if event.ID == lastID {
		return OutcomeNoChange, nil
	}

	if err := p.announce(ctx, *event); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: pr #%d: %w", ErrDispatch, event.Number, err)
	}
	if err := p.store.SetLastAnnounced(ctx, event.ID); err != nil {
		return OutcomeFailed, fmt.Errorf("%w: pr #%d: %w", ErrPersist, event.Number, err)
	}
	logger.Info("patchnotes: sent new patch notes", slog.Int("pr.number", event.Number), slog.String("pr.id", event.ID))
	return OutcomeAnnounced, nil
}

func (p *Poller) latestMerge(ctx context.Context) (*merges.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.source.LatestQualifyingMerge(ctx)
}

func (p *Poller) announce(ctx context.Context, event merges.Event) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.announcer.Announce(ctx, event)
}

func (p *Poller) report(ctx context.Context, logger *slog.Logger, outcome Outcome, err error) {
	if err == nil {
		logger.Debug("patchnotes: poll finished", slog.String("outcome", outcome.String()))
		return
	}
	if ctx.Err() != nil {
		logger.Debug("patchnotes: poll abandoned", tint.Err(err))
		return
	}
	switch {
	case errors.Is(err, ErrPollInFlight):
		logger.Warn("patchnotes: skipping poll, previous poll still running")
	case errors.Is(err, merges.ErrUnauthorized):
		logger.Error("patchnotes: github authentication failed", slog.String("hint", merges.Hint(err)), tint.Err(err))
	case errors.Is(err, merges.ErrForbidden):
		logger.Error("patchnotes: github authorization failed", slog.String("hint", merges.Hint(err)), tint.Err(err))
	case errors.Is(err, merges.ErrNotFound):
		logger.Error("patchnotes: github repository not found", slog.String("hint", merges.Hint(err)), tint.Err(err))
	case errors.Is(err, merges.ErrTransient):
		logger.Warn("patchnotes: github query failed, retrying next poll", slog.String("hint", merges.Hint(err)), tint.Err(err))
	case errors.Is(err, ErrCursorRead):
		logger.Error("patchnotes: error while reading the cursor", tint.Err(err))
	case errors.Is(err, ErrDispatch):
		logger.Error("patchnotes: error while sending patch notes, retrying next poll", tint.Err(err))
	case errors.Is(err, ErrPersist):
		logger.Error("patchnotes: patch notes sent but the cursor was not saved, the next poll may announce them again", tint.Err(err))
	default:
		logger.Error("patchnotes: error while polling", tint.Err(err))
	}
}
