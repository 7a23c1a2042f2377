package engine

import "time"

// Clock supplies the wall-clock timestamp stamped on WAL records.
// Recovery never uses a Clock: replayed records carry their own ts_ms,
// so reconstruction is deterministic regardless of when it runs.
type Clock interface {
	NowMs() int64
}

type systemClock struct{}

func (systemClock) NowMs() int64 { return time.Now().UnixMilli() }
