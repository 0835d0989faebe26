// Command relayer-cli submits jobs to a relayer and prints their results as JSON.
//
//	relayer-cli [-config file] [-url base] [-metrics-addr :9090] <command> [flags]
//
// Commands: keyurl, input-proof, public-decrypt, user-decrypt. Job commands read
// their payload from -payload (a JSON file, or "-" for stdin).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/relayer_sdk/internal/config"
	"github.com/R3E-Network/relayer_sdk/pkg/logger"
	"github.com/R3E-Network/relayer_sdk/pkg/relayer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "relayer-cli: %v\n", err)
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("relayer-cli", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")
	baseURL := fs.String("url", "", "Relayer base URL (overrides config)")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	timeout := fs.Int("timeout-seconds", 0, "Per-request deadline in seconds (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	// Flags win over both file and environment.
	cfg, err := config.Load(*configPath, func(c *config.Config) {
		if *baseURL != "" {
			c.Relayer.URL = *baseURL
		}
		if *timeout > 0 {
			c.Relayer.TimeoutSeconds = *timeout
		}
		if *metricsAddr != "" {
			c.Metrics.Addr = *metricsAddr
		}
	})
	if err != nil {
		return err
	}

	log := cfg.Logger("relayer-cli")
	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return err
	}
	client, err := relayer.New(clientCfg)
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, log)
		defer shutdown()
	}

	cmd, cmdArgs := fs.Arg(0), fs.Args()[1:]
	result, err := dispatch(ctx, client, log, cmd, cmdArgs, stdin)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func dispatch(ctx context.Context, client *relayer.Client, log *logger.Logger, cmd string, args []string, stdin io.Reader) (any, error) {
	op := relayer.Operation(cmd)
	if !op.Valid() {
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
	if op == relayer.OpKeyURL {
		return client.FetchKeyURL(ctx)
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	payloadPath := fs.String("payload", "", "Payload JSON file, or - for stdin")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *payloadPath == "" {
		return nil, fmt.Errorf("%s: -payload is required", cmd)
	}
	data, err := readPayload(*payloadPath, stdin)
	if err != nil {
		return nil, err
	}
	progress := relayer.WithProgress(logProgress(log))

	switch op {
	case relayer.OpInputProof:
		var p relayer.InputProofPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode input-proof payload: %w", err)
		}
		return client.RequestInputProof(ctx, p, progress)
	case relayer.OpPublicDecrypt:
		var p relayer.PublicDecryptPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode public-decrypt payload: %w", err)
		}
		return client.PublicDecrypt(ctx, p, progress)
	case relayer.OpUserDecrypt:
		var p relayer.UserDecryptPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode user-decrypt payload: %w", err)
		}
		return client.UserDecrypt(ctx, p, progress)
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func readPayload(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

func logProgress(log *logger.Logger) relayer.ProgressFunc {
	return func(ev relayer.ProgressEvent) {
		log.WithFields(logrus.Fields{
			"operation":   ev.Operation,
			"request_id":  ev.RequestID,
			"job_id":      ev.JobID,
			"status":      ev.Status,
			"label":       ev.Label,
			"retry_count": ev.RetryCount,
			"retry_after": ev.RetryAfter,
		}).Infof("job %s", ev.Kind)
	}
}

func serveMetrics(addr string, log *logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(relayer.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
