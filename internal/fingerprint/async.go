package fingerprint

// Go computes the fingerprint of text on its own goroutine and delivers it on
// the returned channel. There is no backpressure: every call spawns one
// computation, and the channel is buffered so an abandoned result never blocks.
func Go(e Engine, text string) <-chan Fingerprint {
	out := make(chan Fingerprint, 1)
	go func() {
		defer func() {
			if recover() != nil {
				out <- Invalid
			}
		}()
		out <- e.Fingerprint(text)
	}()
	return out
}
