// ABOUTME: Playback event listener contract
// ABOUTME: Events are delivered on the scheduler goroutine, one at a time
package chunkplayer

// Listener receives playback events from a session's scheduler goroutine.
// Calls are never concurrent with each other and should return quickly.
type Listener interface {
	// OnFinish fires once after a graceful drain empties the queue
	OnFinish()

	// OnPlaySize reports cumulative bytes processed, once per accepted chunk
	OnPlaySize(total int64)

	// OnPlayData delivers an accepted chunk's bytes right before its OnPlaySize
	OnPlayData(p []byte)
}

// ErrorListener is an optional extension for listeners that want to hear about
// sink failures. A failed write ends the session.
type ErrorListener interface {
	OnPlayError(err error)
}

// ListenerFuncs adapts optional callbacks to Listener and ErrorListener
type ListenerFuncs struct {
	Finish   func()
	PlaySize func(total int64)
	PlayData func(p []byte)
	Error    func(err error)
}

func (f ListenerFuncs) OnFinish() {
	if f.Finish != nil {
		f.Finish()
	}
}

func (f ListenerFuncs) OnPlaySize(total int64) {
	if f.PlaySize != nil {
		f.PlaySize(total)
	}
}

func (f ListenerFuncs) OnPlayData(p []byte) {
	if f.PlayData != nil {
		f.PlayData(p)
	}
}

func (f ListenerFuncs) OnPlayError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// nopListener is installed when a session is configured without a listener
type nopListener struct{}

func (nopListener) OnFinish()         {}
func (nopListener) OnPlaySize(int64)  {}
func (nopListener) OnPlayData([]byte) {}
