package market

import "context"

// StreamedBar carries one bar, or a terminal read error, through a bar
// channel. Producers close the channel when the sequence is exhausted;
// a stream is restarted by constructing a new one.
type StreamedBar struct {
	Bar Bar
	Err error
}

// Stream turns an in-memory slice into the channel shape the engine
// consumes. The producer exits on ctx cancellation, so a consumer that
// stops reading mid-slice must cancel to release it.
func Stream(ctx context.Context, bars []Bar) <-chan StreamedBar {
	ch := make(chan StreamedBar, 64)
	go func() {
		defer close(ch)
		for _, b := range bars {
			select {
			case <-ctx.Done():
				return
			case ch <- StreamedBar{Bar: b}:
			}
		}
	}()

	return ch
}
