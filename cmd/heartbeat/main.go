package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pedramktb/go-heartbeat/internal/cli"

	_ "github.com/pedramktb/go-heartbeat/drivers/tls"
	_ "github.com/pedramktb/go-heartbeat/drivers/tlspsk"
	_ "github.com/pedramktb/go-heartbeat/drivers/utls"
)

func main() {
	os.Exit(cli.Run(signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)))
}
