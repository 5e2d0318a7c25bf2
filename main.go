package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"coilfield/coil_geometry"
	"coilfield/config"
	"coilfield/model"
	"coilfield/server"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.WithError(err).Error("执行失败")
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	coilsPath  string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "coilfield",
		Short:         "Magnetic field of axisymmetric coil assemblies",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			log.SetLevel(cfg.LogLevel)
			opts.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "conf/config.ini", "ini config file")
	cmd.PersistentFlags().StringVar(&opts.coilsPath, "coils", "conf/cti_test_bed.yaml", "coil table (yaml)")

	cmd.AddCommand(newServeCmd(opts), newSolveCmd(opts), newTraceCmd(opts))
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the websocket push server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sections []model.Section
			if _, err := os.Stat(opts.coilsPath); err == nil {
				if sections, err = coil_geometry.LoadSections(opts.coilsPath); err != nil {
					return err
				}
			} else {
				log.WithField("path", opts.coilsPath).Warn("线圈表不存在，等待前端设置")
			}
			upgrader.CheckOrigin = func(r *http.Request) bool {
				return true
			}
			return server.NewServer(opts.cfg.Addr, upgrader, opts.cfg, sections).Serve()
		},
	}
}
