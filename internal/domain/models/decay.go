package models

import (
	"math"
	"time"
)

// DecayedScore applies the namespace retention policy to a similarity score.
// The score is halved for every half-life elapsed since ref. The second
// return value is false when the chunk is past its TTL and must be dropped.
func DecayedScore(score float32, ns Namespace, ref, now time.Time) (float32, bool) {
	policy := RetentionFor(ns)

	age := now.Sub(ref)
	if age < 0 {
		age = 0
	}
	ageDays := age.Hours() / 24

	if policy.TTLDays > 0 && ageDays > float64(policy.TTLDays) {
		return 0, false
	}
	if policy.DecayHalfLifeDays <= 0 {
		return score, true
	}

	factor := math.Pow(0.5, ageDays/policy.DecayHalfLifeDays)
	return score * float32(factor), true
}

// DecayReference picks the timestamp decay is measured from: fetched_at when
// present, created_at otherwise.
func DecayReference(meta ChunkMetadata, createdAt time.Time) time.Time {
	if meta.FetchedAt != nil {
		return *meta.FetchedAt
	}
	return createdAt
}
