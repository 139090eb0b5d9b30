package llm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"

	"content-crew/internal/domain"
)

// maxSSELine bounds one event line. Tool call argument chunks can be long.
const maxSSELine = 1 << 20

var sseDone = []byte("[DONE]")

// sseData yields the payload of every "data:" line in r until "[DONE]" or
// EOF. Comments, other fields and blank separators are skipped. A read
// failure or an over-long line is yielded last as a nil payload with its
// error.
func sseData(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64<<10), maxSSELine)
		for sc.Scan() {
			payload, ok := bytes.CutPrefix(sc.Bytes(), []byte("data:"))
			if !ok {
				continue
			}
			payload = bytes.TrimSpace(payload)
			if bytes.Equal(payload, sseDone) || !yield(payload, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// streamDeltas decodes body into deltas on a channel. Payloads decode
// rejects are skipped. The channel ends with a Done delta, or with an Err
// delta when the body cannot be read to the end, unless ctx is cancelled
// first. body is closed when the pump exits.
func streamDeltas(ctx context.Context, body io.ReadCloser, decode func([]byte) (*domain.StreamDelta, error)) <-chan domain.StreamDelta {
	out := make(chan domain.StreamDelta, 16)
	go func() {
		defer close(out)
		defer body.Close()

		emit := func(d domain.StreamDelta) bool {
			select {
			case out <- d:
				return !d.Done && d.Err == nil
			case <-ctx.Done():
				return false
			}
		}
		for payload, err := range sseData(body) {
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				emit(domain.StreamDelta{Err: fmt.Errorf("read stream: %w: %w", domain.ErrProviderError, err)})
				return
			}
			d, err := decode(payload)
			if err != nil || d == nil {
				continue
			}
			if !emit(*d) {
				return
			}
		}
		emit(domain.StreamDelta{Done: true})
	}()
	return out
}
