package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"campus-canteen/internal/canteen"
	"campus-canteen/internal/kitchen"
	"campus-canteen/internal/notsub"
	xerrors "campus-canteen/internal/xpkg/errors"
	"campus-canteen/internal/xpkg/logger"
)

type service struct {
	name    string
	execute func(ctx context.Context, mylog logger.Logger, args []string) error
}

var services = map[string]service{
	"canteen-service":         {"canteen-service", canteen.Execute},
	"cs":                      {"canteen-service", canteen.Execute},
	"kitchen-board":           {"kitchen-board", kitchen.Execute},
	"kb":                      {"kitchen-board", kitchen.Execute},
	"notification-subscriber": {"notification-subscriber", notsub.Execute},
	"ns":                      {"notification-subscriber", notsub.Execute},
}

func main() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "INFO"
	}
	mylogger, err := logger.New(level)
	if err != nil {
		log.Fatalf("log error: %v", err)
	}

	mylogger.Action("campus_canteen_started").Info("Successfully started")
	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	mode := fs.String("mode", "", "service to run: canteen-service (cs) | kitchen-board (kb) | notification-subscriber (ns)")

	modeArgs, remainingArgs := splitMode(os.Args[1:])
	if err := fs.Parse(modeArgs); err != nil {
		mylogger.Action("campus_canteen_failed").Error("Failed to parse flags", xerrors.ErrParseCmd)
		help(fs)
		os.Exit(2)
	}

	if *mode == "" {
		mylogger.Action("campus_canteen_failed").Error("Failed to start campus canteen", xerrors.ErrModeFlag)
		help(fs)
		os.Exit(2)
	}

	svc, ok := services[*mode]
	if !ok {
		mylogger.Action("campus_canteen_failed").Error("Failed to start campus canteen", xerrors.ErrUnknownService, "mode", *mode)
		help(fs)
		os.Exit(2)
	}

	action := strings.ReplaceAll(svc.name, "-", "_")
	l := mylogger.With("service", svc.name)
	l.Action(action + "_started").Info("Successfully started")
	if err := svc.execute(context.Background(), l, remainingArgs); err != nil {
		if errors.Is(err, xerrors.ErrHelp) {
			return
		}
		l.Action(action+"_failed").Error("Error in "+svc.name, err)
		log.Fatalf("failed to execute %s: %s", svc.name, err)
	}
	l.Action(action + "_completed").Info("Successfully completed")
}

// splitMode separates the --mode flag from the arguments passed on to the
// selected service. Both "--mode=x" and "--mode x" are accepted.
func splitMode(args []string) (modeArgs, rest []string) {
	rest = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name := strings.TrimLeft(arg, "-")
		switch {
		case strings.HasPrefix(name, "mode=") && strings.HasPrefix(arg, "-"):
			modeArgs = append(modeArgs, arg)
		case name == "mode" && strings.HasPrefix(arg, "-"):
			modeArgs = append(modeArgs, arg)
			if i+1 < len(args) {
				modeArgs = append(modeArgs, args[i+1])
				i++
			}
		default:
			rest = append(rest, arg)
		}
	}
	return modeArgs, rest
}

func help(fs *flag.FlagSet) {
	fmt.Println("\nUsage:")
	fs.PrintDefaults()
	fmt.Println("\nExample:")
	fmt.Println("  ./campus-canteen --mode=canteen-service --port=3000 --config-path=config.yaml")
	fmt.Println("  ./campus-canteen --mode=kitchen-board")
	fmt.Println("  ./campus-canteen --mode=notification-subscriber --prefetch=10")
}
