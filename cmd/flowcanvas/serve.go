package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"flowcanvas/internal/handler"
	"flowcanvas/internal/hub"
	"flowcanvas/internal/service"
	"flowcanvas/internal/ui"
)

func serveCmd() *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the project API and the event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Println("Starting flowcanvas server...")
			defer startTracing(ctx, cfg)()

			eventBus := service.NewEventBus()
			svc, err := newService(cfg, cfg.Database.Path, eventBus)
			if err != nil {
				return err
			}
			defer svc.Close()
			log.Printf("Database opened: %s", cfg.Database.Path)

			// SSE hub fed by the event bus
			sseHub := hub.New()
			go sseHub.Run(ctx)
			go sseHub.Forward(ctx, eventBus)

			projectHandler := handler.NewProjectHandler(svc)
			projectHandler.SetCanvasConfig(cfg.CanvasSettings())

			mux := http.NewServeMux()
			projectHandler.Register(mux)
			mux.Handle("GET /events", sseHub)

			server := &http.Server{
				Addr: cfg.Server.Addr,
				Handler: handler.Chain(mux,
					handler.Recover,
					handler.CORS,
					handler.Logger,
				),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				IdleTimeout:  cfg.Server.IdleTimeout,
			}

			errc := make(chan error, 1)
			go func() {
				log.Printf("Server listening on %s", cfg.Server.Addr)
				ui.Brand.Print("flowcanvas ")
				ui.Subtle.Printf("listening on %s\n", cfg.Server.Addr)
				if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			log.Println("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("Server shutdown error: %v", err)
			}
			log.Println("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (overrides database.path)")
	return cmd
}
