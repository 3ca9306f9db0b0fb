package metrics

import "sync/atomic"

// Recorder is an in-memory Sink, handy for tests and dry runs.
type Recorder struct {
	esiCalls     atomic.Int64
	discordCalls atomic.Int64
	scoutData    atomic.Int64
}

func (r *Recorder) IncESICalls()       { r.esiCalls.Add(1) }
func (r *Recorder) IncDiscordCalls()   { r.discordCalls.Add(1) }
func (r *Recorder) SetScoutData(n int) { r.scoutData.Store(int64(n)) }

func (r *Recorder) ESICalls() int64     { return r.esiCalls.Load() }
func (r *Recorder) DiscordCalls() int64 { return r.discordCalls.Load() }
func (r *Recorder) ScoutData() int64    { return r.scoutData.Load() }
