package pkg

import (
	"context"

	"patchnotes-bot/pkg/merges"
	"patchnotes-bot/pkg/patchnotes"
)

type MergeSource interface {
	LatestQualifyingMerge(ctx context.Context) (*merges.Event, error)
}

type Bot struct {
	Source MergeSource
	Poller *patchnotes.Poller
}
