//go:build debug

package trace

import (
	"fmt"
	"log"
	"os"
)

var logger = log.New(os.Stderr, "[stealpool] ", log.Ltime|log.Lmicroseconds|log.Lshortfile)

func worker(id int, format string, args ...any) {
	logger.Output(2, fmt.Sprintf("worker %d: "+format, append([]any{id}, args...)...))
}

func pool(format string, args ...any) {
	logger.Output(2, fmt.Sprintf("pool: "+format, args...))
}
