package port

import "github.com/hargall/dlt645mqtt/pkg/dlt645"

// PollRotation decides which register the poller reads on each tick.
type PollRotation interface {
	Next() dlt645.DataIdentifier
	Reset()
}
