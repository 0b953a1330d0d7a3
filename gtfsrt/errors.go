package gtfsrt

import "fmt"

// FetchError reports a transport failure or non-2xx status while downloading
// a feed. It aborts the whole poll pass.
type FetchError struct {
	URL    string
	Status int // 0 when the transport itself failed
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("HTTP %d from %s", e.Status, e.URL)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports a payload that does not conform to the GTFS-RT schema.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode GTFS-RT feed: %v", e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }
