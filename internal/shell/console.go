package shell

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gtmodkit/gtmulti/internal/bus"
)

const prompt = "gtmulti> "

// Console connects stdin/stdout to the shell bus.
type Console struct {
	outbound chan bus.Notice
	done     chan struct{}
}

func NewConsole() *Console {
	return &Console{
		done: make(chan struct{}),
	}
}

func (c *Console) Start(ctx context.Context, b *bus.ShellBus) error {
	c.outbound = b.Subscribe()

	go c.readInput(ctx, b)
	go c.writeOutput(ctx)

	return nil
}

func (c *Console) Stop() error {
	close(c.done)
	return nil
}

func (c *Console) readInput(ctx context.Context, b *bus.ShellBus) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print(prompt)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		if !scanner.Scan() {
			return
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			fmt.Print(prompt)
			continue
		}

		b.Publish(bus.Command{
			Line:      text,
			Timestamp: time.Now(),
		})
	}
}

func (c *Console) writeOutput(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case n, ok := <-c.outbound:
			if !ok {
				return
			}
			fmt.Printf("\n%s\n\n%s", n.Content, prompt)
		}
	}
}
