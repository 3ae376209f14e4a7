package xbee

import "time"

// StatsGroup names one of the four independent round-trip timing groups.
// Sequence numbers are scoped per group, not shared, since a local
// command, a remote command, an outbound chunk, and an inbound chunk can
// all be in flight under the same numeric sequence at once.
type StatsGroup int

const (
	StatsLocalCommand StatsGroup = iota
	StatsRemoteCommand
	StatsTransmit
	StatsReceive

	statsGroupCount = 4
)

func (g StatsGroup) String() string {
	switch g {
	case StatsLocalCommand:
		return "FRAME_LOCAL"
	case StatsRemoteCommand:
		return "FRAME_REMOTE"
	case StatsTransmit:
		return "TRANSMIT"
	case StatsReceive:
		return "RECEIVE"
	}
	return "UNKNOWN"
}

// statsSummary accumulates min/max/sum/count for one group. The mean is
// computed lazily in Summarise rather than kept running, since it needs
// the final sample count.
type statsSummary struct {
	minimum time.Duration
	maximum time.Duration
	sum     time.Duration
	samples uint64
}

func (s *statsSummary) add(d time.Duration) {
	if s.samples == 0 || d < s.minimum {
		s.minimum = d
	}
	if d > s.maximum {
		s.maximum = d
	}
	s.sum += d
	s.samples++
}

// Summary is the read-only view of a group's accumulated statistics,
// returned by Session.Stats.
type Summary struct {
	Group   StatsGroup
	Minimum time.Duration
	Maximum time.Duration
	Mean    time.Duration
	Samples uint64
}

// statsTracker stores, per group and per sequence byte, the send
// timestamp recorded by recordSend, consumed by recordRecv to compute one
// round-trip sample. All four groups are tracked uniformly, each with its
// own 256-entry send-time table and summary.
type statsTracker struct {
	sendTime [statsGroupCount][256]time.Time
	summary  [statsGroupCount]statsSummary
}

func newStatsTracker() *statsTracker {
	return &statsTracker{}
}

func (t *statsTracker) recordSend(group StatsGroup, seq byte, at time.Time) {
	t.sendTime[group][seq] = at
}

func (t *statsTracker) recordRecv(group StatsGroup, seq byte, at time.Time) {
	sent := t.sendTime[group][seq]
	if sent.IsZero() {
		return
	}
	t.summary[group].add(at.Sub(sent))
}

// Summarise returns one Summary per group, in group order; Session.Stats
// exposes it to callers.
func (t *statsTracker) Summarise() []Summary {
	out := make([]Summary, statsGroupCount)
	for g := 0; g < statsGroupCount; g++ {
		s := t.summary[g]
		var mean time.Duration
		if s.samples > 0 {
			mean = s.sum / time.Duration(s.samples)
		}
		out[g] = Summary{
			Group:   StatsGroup(g),
			Minimum: s.minimum,
			Maximum: s.maximum,
			Mean:    mean,
			Samples: s.samples,
		}
	}
	return out
}
