package storage

import (
	"bytes"
	"strconv"
	"time"
)

// UnixTime is a time.Time that serialises as integer Unix seconds.
// User, team and workspace metadata documents store timestamps this way.
type UnixTime time.Time

// Now returns the current time truncated to whole seconds, matching the
// precision the wire format can carry.
func Now() UnixTime {
	return UnixTime(time.Now().UTC().Truncate(time.Second))
}

func (t UnixTime) Time() time.Time { return time.Time(t) }

func (t UnixTime) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, time.Time(t).Unix(), 10), nil
}

func (t *UnixTime) UnmarshalJSON(data []byte) error {
	secs, err := strconv.ParseInt(string(bytes.TrimSpace(data)), 10, 64)
	if err != nil {
		return err
	}
	*t = UnixTime(time.Unix(secs, 0).UTC())
	return nil
}
