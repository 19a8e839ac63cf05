package domain

import "time"

type FeedingPath string

const (
	FeedingPathScheduled FeedingPath = "scheduled"
	FeedingPathRewarded  FeedingPath = "rewarded"
	FeedingPathFree      FeedingPath = "free"
)

type SnapshotLabel string

const (
	SnapshotSuccess  SnapshotLabel = "success"
	SnapshotFailure  SnapshotLabel = "fail"
	SnapshotCheating SnapshotLabel = "cheating"
)

type FeedingEvent struct {
	ID       string
	Rule     string
	Path     FeedingPath
	Portions int
	FedToday int
	FedAt    time.Time
}
