// Command stealbench submits a burst of synthetic tasks to a work-stealing
// pool, shows a live progress bar while they run, and prints a colorized
// summary table of the worker count, tasks submitted and tasks failed once
// they're done.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"stealpool/pool"
)

func main() {
	workers := flag.Int("workers", 0, "worker count (0 = GOMAXPROCS)")
	tasks := flag.Int("tasks", 50_000, "number of tasks to submit")
	maxSleep := flag.Duration("max-sleep", 2*time.Millisecond, "max per-task simulated work")
	flag.Parse()

	var opts []pool.Option
	if *workers > 0 {
		opts = append(opts, pool.WithWorkers(*workers))
	}
	p := pool.New[int](opts...)

	bar := progressbar.NewOptions(*tasks,
		progressbar.OptionSetDescription("running tasks"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
	)

	var completed atomic.Int64

	futures := make([]futureHandle, *tasks)
	for i := 0; i < *tasks; i++ {
		i := i
		fut, err := p.Submit(func() (int, error) {
			sleep := time.Duration(rand.Int64N(int64(*maxSleep) + 1))
			time.Sleep(sleep)
			completed.Add(1)
			return i, nil
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, color.RedString("submit failed: %v", err))
			os.Exit(1)
		}
		futures[i] = futureHandle{index: i, get: fut.Get}
	}

	stopTicker := make(chan struct{})
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = bar.Set(int(completed.Load()))
			case <-stopTicker:
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	shutdownErr := p.Shutdown(ctx)
	close(stopTicker)
	<-tickerDone

	if shutdownErr != nil {
		fmt.Fprintln(os.Stderr, color.RedString("shutdown failed: %v", shutdownErr))
		os.Exit(1)
	}
	_ = bar.Set(int(completed.Load()))
	_ = bar.Finish()

	var failed int
	for _, f := range futures {
		if _, err := f.get(); err != nil {
			failed++
		}
	}

	fmt.Println()
	color.New(color.FgGreen, color.Bold).Println("stealbench summary")

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("metric", "value")
	_ = table.Append("workers", fmt.Sprintf("%d", p.Workers()))
	_ = table.Append("tasks submitted", fmt.Sprintf("%d", *tasks))
	_ = table.Append("tasks failed", fmt.Sprintf("%d", failed))
	if err := table.Render(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("render failed: %v", err))
	}
}

type futureHandle struct {
	index int
	get   func() (int, error)
}
