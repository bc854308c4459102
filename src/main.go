package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/osutaiko/Pawnpulse/src/models"
	"github.com/osutaiko/Pawnpulse/src/primaryserver"
	"github.com/osutaiko/Pawnpulse/src/review"
	"github.com/osutaiko/Pawnpulse/src/worker"
)

const examplePGN = `[Event "Example"]

1. e4 e5 2. Nf3 Nc6 3. Bc4 Nd4 4. Nxe5 Qg5 *`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  pawnpulse server [port] [engine_path]               - Serve the analysis API")
		fmt.Println("  pawnpulse analyze <fen> [multipv] [engine_path]     - Stream analysis of one position")
		fmt.Println("  pawnpulse example [engine_path]                     - Review a sample game")
		return
	}

	logger := newLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "server":
		port := ":8080"
		if len(os.Args) > 2 {
			port = ":" + os.Args[2]
		}
		err = runServer(ctx, logger, port, argAt(3))

	case "analyze":
		if len(os.Args) < 3 {
			logger.Fatal().Msg("analyze needs a FEN")
		}
		req := models.DefaultRequest(os.Args[2])
		if v := argAt(3); v != "" {
			n, convErr := strconv.Atoi(v)
			if convErr != nil {
				logger.Fatal().Err(convErr).Msg("invalid multipv")
			}
			req.MultiPV = n
		}
		err = runAnalyze(ctx, logger, req, argAt(4))

	case "example":
		err = runExample(ctx, logger, argAt(2))

	default:
		fmt.Println("Unknown command:", os.Args[1])
		return
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg(os.Args[1] + " failed")
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if v := os.Getenv("PAWNPULSE_LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()
}

func argAt(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func newController(logger zerolog.Logger, enginePath string) (*worker.Controller, error) {
	return worker.NewController(worker.Config{
		EnginePath: enginePath,
		Logger:     logger.With().Str("component", "controller").Logger(),
	}, nil)
}

func runServer(ctx context.Context, logger zerolog.Logger, addr, enginePath string) error {
	controller, err := newController(logger, enginePath)
	if err != nil {
		return err
	}
	defer controller.Close()

	srv := primaryserver.NewServer(controller, logger.With().Str("component", "server").Logger())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Dispatch(gctx)
	})
	g.Go(func() error {
		return srv.StartServer(gctx, addr)
	})
	return g.Wait()
}

// runAnalyze prints each snapshot update until the search completes.
func runAnalyze(ctx context.Context, logger zerolog.Logger, req models.AnalysisRequest, enginePath string) error {
	controller, err := newController(logger, enginePath)
	if err != nil {
		return err
	}
	defer controller.Close()

	updates, cancel := controller.Subscribe(256)
	defer cancel()

	if _, err := controller.Start(ctx, req); err != nil {
		return err
	}
	return printUpdates(ctx, updates, req.MultiPV)
}

func printUpdates(ctx context.Context, updates <-chan worker.Update, multiPV int) error {
	lastDepth := -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			switch u.Kind {
			case worker.SessionEnded:
				return u.Err
			case worker.SnapshotUpdated:
				if u.Snapshot.Depth != lastDepth || u.Snapshot.Complete {
					lastDepth = u.Snapshot.Depth
					fmt.Printf("Depth: %d\n", u.Snapshot.Depth)
					for _, row := range u.Snapshot.Rows(multiPV) {
						fmt.Printf("  %6s  %-7s %s\n", row.Eval, row.Best, row.Rest)
					}
				}
				if u.Snapshot.Complete {
					fmt.Printf("bestmove %s\n", u.Snapshot.BestMove)
					return nil
				}
			}
		}
	}
}

// runExample walks a short game and analyses the final position.
func runExample(ctx context.Context, logger zerolog.Logger, enginePath string) error {
	r, err := review.New("example", models.ReviewSubmission{PGN: examplePGN})
	if err != nil {
		return err
	}
	for _, row := range r.Rows() {
		fmt.Printf("%d. %s %s\n", row.Number, row.White, row.Black)
	}
	if _, err := r.Navigate(review.NavEnd); err != nil {
		return err
	}
	fmt.Printf("Analysing ply %d: %s\n", r.Ply(), r.FEN())
	return runAnalyze(ctx, logger, r.Request(), enginePath)
}
