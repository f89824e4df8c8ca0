package notsub

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	brokermessage "campus-canteen/internal/notsub/adapter/broker_message"
	"campus-canteen/internal/notsub/adapter/consumer"
	"campus-canteen/internal/notsub/app/core"
	"campus-canteen/internal/notsub/app/services"
	"campus-canteen/internal/notify"
	"campus-canteen/internal/xpkg/config"
	"campus-canteen/internal/xpkg/logger"

	"github.com/google/uuid"
)

type params struct {
	subParams  *core.SubscriberParams
	configPath string
	cfg        *config.Config
}

// Execute starts the notification subscriber: it follows order events on
// RabbitMQ and raises the kitchen-ready notification.
func Execute(ctx context.Context, mylog logger.Logger, args []string) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	params, err := parseParams(args)
	if err != nil {
		if errors.Is(err, core.ErrHelp) {
			return err
		}
		mylog.Action("command_parse_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_parse_completed").Debug("Received params", "config_path", params.configPath, "queue", params.subParams.Queue)

	if err = validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_validation_completed").Info("Successfully validate params")

	mb, err := brokermessage.New(context.Background(), params.cfg.RMQ, params.subParams.Queue, params.subParams.Prefetch, mylog)
	if err != nil {
		mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
		return err
	}
	mylog.Action("mb_connected").Info("Successful message broker connection")

	toast := notify.NewToast(params.cfg.Notification.DismissAfter)
	defer toast.Stop()

	orderService := services.NewOrderService(newCtx, toast, os.Stdout, mylog)
	consumerTag := "notification-subscriber-" + uuid.NewString()
	notif := consumer.NewNotification(newCtx, mb, orderService, params.subParams, consumerTag, mylog)

	runErr := notif.Run()
	if runErr != nil {
		mylog.Action("notsub_run_failed").Error("Notification subscriber stopped with error", runErr)
	}

	mylog.Action("graceful_shutdown_started").Info("Shutting down")
	if err := mb.Close(); err != nil {
		mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
		return errors.Join(runErr, fmt.Errorf("mb close: %w", err))
	}
	mylog.Action("graceful_shutdown_completed").Info("Successfully shut down")
	return runErr
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("notification-subscriber", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")
	prefetch := fs.Int("prefetch", 10, "Unacknowledged deliveries handled at once")
	queue := fs.String("queue", core.DefaultQueue, "Queue bound to the order notifications exchange")

	if err := fs.Parse(args); err != nil {
		return nil, errors.New("cannot parse arguments")
	}

	if *showHelp {
		fs.Usage()
		return nil, core.ErrHelp
	}

	return &params{
		subParams: &core.SubscriberParams{
			Prefetch: *prefetch,
			Queue:    *queue,
		},
		configPath: *configPath,
	}, nil
}

func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	params.cfg = cfg

	if !cfg.RMQ.IsConfigured() {
		return core.ErrBrokerUnset
	}
	if params.subParams.Prefetch <= 0 {
		return fmt.Errorf("prefetch must be positive: %d", params.subParams.Prefetch)
	}
	if params.subParams.Queue == "" {
		return errors.New("queue name cannot be empty")
	}
	return nil
}
