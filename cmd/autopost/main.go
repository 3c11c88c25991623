package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"

	"autopost/internal/app"
	"autopost/internal/run"
)

func main() {
	var (
		cfgPath string
		once    bool
		winName string
	)
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.BoolVar(&once, "once", false, "run a single invocation and exit")
	flag.StringVar(&winName, "window", "", "window name for -once")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	if once {
		out := a.RunOnce(ctx, winName)
		_ = a.Stop(context.Background())
		fmt.Printf("%s: %s\n", out.Class, out.Reason)
		if out.Class == run.ClassInternal || out.Class == run.ClassInput {
			os.Exit(1)
		}
		return
	}

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	select {
	case <-ctx.Done():
	case err := <-a.Err():
		if err != nil {
			fmt.Println("fatal serve:", err)
		}
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	_ = a.Stop(context.Background())
}
