package canteen

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/netip"
	"os/signal"
	"strings"
	"syscall"

	"campus-canteen/internal/canteen/api/http"
	"campus-canteen/internal/canteen/app/core"
	"campus-canteen/internal/xpkg/config"
	"campus-canteen/internal/xpkg/logger"
)

type params struct {
	canteenParams  *core.CanteenParams
	configPath     string
	trustedProxies string
	cfg            *config.Config
}

// Execute starts the canteen service: the customer, kitchen and admin
// surfaces behind one HTTP API.
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
	if err = validateParams(params); err != nil {
		mylog.Action("command_validation_failed").Error("Invalid command received", err)
		return err
	}
	mylog.Action("command_validation_completed").Info("Successfully validate params")

	server := http.NewServer(newCtx, context.Background(), params.cfg, params.canteenParams, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylog.Action("canteen_service_failed").Error("Server failed unexpectedly", err)
			_ = server.Stop(context.Background())
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return server.Stop(context.Background())
	}
}

func parseParams(args []string) (*params, error) {
	fs := flag.NewFlagSet("canteen-service", flag.ContinueOnError)
	showHelp := fs.Bool("help", false, "Show help")
	configPath := fs.String("config-path", "config.yaml", "path for config yaml")

	port := fs.Int("port", 3000, "Port to run the canteen service")
	checkoutRate := fs.Int("checkout-rate", 30, "Orders a single client may place per minute")
	checkoutBurst := fs.Int("checkout-burst", 5, "Orders a single client may place in a burst")
	trustedProxies := fs.String("trusted-proxies", "", "Comma separated proxy addresses or CIDRs allowed to forward the client address")

	if err := fs.Parse(args); err != nil {
		return nil, errors.New("cannot parse arguments")
	}

	if *showHelp {
		fs.Usage()
		return nil, core.ErrHelp
	}

	return &params{
		canteenParams: &core.CanteenParams{
			Port:          *port,
			CheckoutRate:  *checkoutRate,
			CheckoutBurst: *checkoutBurst,
		},
		configPath:     *configPath,
		trustedProxies: *trustedProxies,
	}, nil
}

func validateParams(params *params) error {
	cfg, err := config.LoadConfig(params.configPath)
	if err != nil {
		return err
	}
	params.cfg = cfg

	p := params.canteenParams
	if p.Port <= 0 || p.Port >= 65536 {
		return fmt.Errorf("port must be in [1: 65,535]: %d", p.Port)
	}
	if p.CheckoutRate <= 0 {
		return fmt.Errorf("checkout rate must be positive: %d", p.CheckoutRate)
	}
	if p.CheckoutBurst <= 0 {
		return fmt.Errorf("checkout burst must be positive: %d", p.CheckoutBurst)
	}
	if p.TrustedProxies, err = parseProxies(params.trustedProxies); err != nil {
		return err
	}
	return nil
}

func parseProxies(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, s := range strings.Split(list, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(s); err == nil {
			out = append(out, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", s)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
