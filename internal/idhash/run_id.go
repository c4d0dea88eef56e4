// Package idhash derives deterministic identifiers for merge runs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"gmx-edge-lab/internal/domain"
)

// Namespace is the UUID namespace of run ids.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gmx-edge-lab/run"))

// ComputeInputDigest hashes the inputs of a merge run.
// Formula: SHA256(sorted event lines joined by "\n" | "\x00" | reference points as unix|price)
// An event line is id|unix|event_type|is_long|price|size_delta|collateral_delta|fee,
// amounts already scaled, so a change in any event or in the cleaner's scales changes the digest.
// Neither event order nor reference order affects the digest.
// Returns hex-encoded hash (64 characters).
func ComputeInputDigest(events []*domain.PositionEvent, reference []domain.PricePoint) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		if e != nil {
			lines = append(lines, eventLine(e))
		}
	}
	sort.Strings(lines)

	points := make([]domain.PricePoint, len(reference))
	copy(points, reference)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})

	h := sha256.New()
	for _, line := range lines {
		fmt.Fprintf(h, "%s\n", line)
	}
	h.Write([]byte{0})
	for _, p := range points {
		fmt.Fprintf(h, "%d|%g\n", p.Time.UnixNano(), p.Price)
	}

	return hex.EncodeToString(h.Sum(nil))
}

func eventLine(e *domain.PositionEvent) string {
	return fmt.Sprintf("%s|%d|%s|%t|%s|%s|%s|%s",
		e.ID,
		e.Time.Unix(),
		e.EventType,
		e.IsLong,
		e.Price.String(),
		e.SizeDelta.String(),
		e.CollateralDelta.String(),
		e.Fee.String(),
	)
}

// ComputeRunID returns a name-based (SHA1) UUID for a merge run.
// Formula: UUIDv5(Namespace, index_token|window|input_digest)
func ComputeRunID(indexToken string, window int, inputDigest string) string {
	name := fmt.Sprintf("%s|%d|%s", indexToken, window, inputDigest)
	return uuid.NewSHA1(Namespace, []byte(name)).String()
}
