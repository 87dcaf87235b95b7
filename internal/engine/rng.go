package engine

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// seededRand builds a locally scoped generator from stable string parts.
// Identical inputs always yield identical draw sequences, so independent
// processes converge on the same picks without shared state. The generator
// is never shared between calls.
func seededRand(parts ...string) *rand.Rand {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return rand.New(rand.NewPCG(
		binary.BigEndian.Uint64(sum[0:8]),
		binary.BigEndian.Uint64(sum[8:16]),
	))
}

// dayRand is the per-(date, teacher) generator used by the daily selector.
func dayRand(teacher string, day time.Time) *rand.Rand {
	return seededRand(dateKey(day), teacher)
}

// weekRand is the per-(ISO year, ISO week, teacher) generator used by the
// weekly builder. It is stable no matter which weekday triggers the build.
func weekRand(teacher string, isoYear, isoWeek int) *rand.Rand {
	return seededRand(fmt.Sprintf("%04d-W%02d", isoYear, isoWeek), teacher)
}
