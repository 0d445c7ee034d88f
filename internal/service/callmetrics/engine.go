// Package callmetrics computes silence and overtalk metrics from utterance timing.
package callmetrics

import (
	"cmp"
	"math"
	"slices"

	"call-compliance-analyzer/internal/models"
)

type span struct {
	start float64
	end   float64
}

// Compute derives timing metrics from a transcript. Input order does not matter.
//
// Total duration is the end of the last utterance by start time minus the
// first start time. An utterance that starts earlier but ends later than the
// last one is not counted towards the total.
func Compute(t models.Transcript) models.MetricsResult {
	if len(t) == 0 {
		return models.MetricsResult{}
	}

	spans := make([]span, len(t))
	for i, u := range t {
		spans[i] = span{start: u.Start.Seconds(), end: u.End.Seconds()}
	}
	slices.SortFunc(spans, func(a, b span) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.end, b.end)
	})

	total := spans[len(spans)-1].end - spans[0].start

	var silence, overtalk float64
	prevEnd := spans[0].end
	for _, s := range spans[1:] {
		if s.start > prevEnd {
			silence += s.start - prevEnd
		} else if s.start < prevEnd {
			overtalk += prevEnd - s.start
		}
		prevEnd = math.Max(prevEnd, s.end)
	}

	return models.MetricsResult{
		TotalDuration:    round2(total),
		SilenceDuration:  round2(silence),
		OvertalkDuration: round2(overtalk),
		SilencePct:       percent(silence, total),
		OvertalkPct:      percent(overtalk, total),
		UtteranceCount:   len(t),
	}
}

func percent(part, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return round2(part / total * 100)
}

func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}
