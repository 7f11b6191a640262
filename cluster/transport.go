package cluster

import (
	"bufio"
	"os"
	"sync"

	"github.com/ignite-go/ignite/respcache"
)

// pipeTransport carries respcache.Message frames over a pair of
// inherited, unidirectional os.Pipe file descriptors: newline-delimited
// JSON in each direction, one writer and one reader per process. A worker
// sends its cache requests through it; the primary reads them with
// readLoop and writes each reply straight to that worker's reply pipe.
type pipeTransport struct {
	mu sync.Mutex
	w  *os.File
}

func newPipeTransport(w *os.File) *pipeTransport {
	return &pipeTransport{w: w}
}

// Send implements respcache.Transport.
func (t *pipeTransport) Send(msg respcache.Message) error {
	b, err := msg.Marshal()
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	b = append(b, '\n')
	_, err = t.w.Write(b)
	return err
}

// readLoop scans newline-delimited Messages off r until EOF, invoking
// onMessage for each one and skipping lines that fail to decode. It runs
// until the peer process
// (primary or worker) exits and closes its end of the pipe.
func readLoop(r *os.File, onMessage func(respcache.Message)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		msg, err := respcache.UnmarshalMessage(sc.Bytes())
		if err != nil {
			continue
		}
		onMessage(msg)
	}
}
