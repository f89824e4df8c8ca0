package kitchen

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"campus-canteen/internal/kitchen/board"
	"campus-canteen/internal/projection"
	"campus-canteen/internal/replica"
	"campus-canteen/internal/store"
	"campus-canteen/internal/xpkg/config"
	xerrors "campus-canteen/internal/xpkg/errors"
	"campus-canteen/internal/xpkg/logger"
)

type params struct {
	configPath string
	clear      bool
	cfg        *config.Config
}

// Execute starts the kitchen board: a terminal view of the kitchen columns
// that redraws on every order change.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, cancel := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	params, err := parseParams(args)
	if err != nil {
		if errors.Is(err, xerrors.ErrHelp) {
			return err
		}
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_parse_completed").Debug("Received params", "config_path", params.configPath)

	if err := validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_validation_completed").Info("Successfully validate params")

	st, err := store.Open(context.Background(), params.cfg, mylog)
	if err != nil {
		mylog.Action("store_connection_failed").Error("Failed to open store", err)
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			mylog.Action("store_close_failed").Error("Failed to close store", err)
		}
	}()

	orders := replica.New("kitchen_board", replica.OrderSource(st), replica.Prepend, params.cfg.Sync.PollInterval, mylog)
	renderer := board.NewRenderer(os.Stdout, params.cfg.Canteen.Location(), params.clear)
	orders.OnChange(func() {
		if err := renderer.Render(projection.KitchenBoard(orders.Snapshot())); err != nil {
			mylog.Action("render_failed").Error("Failed to draw kitchen board", err)
		}
	})

	mylog.Action("kitchen_board_running").Info("Kitchen board is running", "poll_interval", params.cfg.Sync.PollInterval.String())
	if err := orders.Run(newCtx); err != nil {
		mylog.Action("kitchen_board_failed").Error("Kitchen board stopped with error", err)
		return err
	}
	mylog.Action("graceful_shutdown_completed").Info("Kitchen board stopped")
	return nil
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("kitchen-board", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	clear := fs.Bool("clear", true, "Redraw the board from the top of the terminal")

	if err := fs.Parse(args); err != nil {
		return nil, xerrors.ErrParseCmd
	}

	if *showHelp {
		fs.Usage()
		return nil, xerrors.ErrHelp
	}

	return &params{
		configPath: *configPath,
		clear:      *clear,
	}, nil
}

func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	if cfg.Store.Driver == config.DriverMemory {
		return fmt.Errorf("kitchen board needs a shared store, not %q", cfg.Store.Driver)
	}
	params.cfg = cfg
	return nil
}
