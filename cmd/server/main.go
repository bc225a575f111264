package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"chunkfield.dev/internal/persistence/indexdb"
	persistlog "chunkfield.dev/internal/persistence/log"
	"chunkfield.dev/internal/persistence/snapshot"
	"chunkfield.dev/internal/sim/tuning"
	"chunkfield.dev/internal/sim/world"
	"chunkfield.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		gridID     = flag.String("grid", "grid_1", "grid id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite op/snapshot index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tun, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("no tuning at %s, using defaults", tp)
		tun = tuning.Default()
	}

	gridDir := filepath.Join(*dataDir, "grids", *gridID)
	_ = os.MkdirAll(gridDir, 0o755)

	opLog := persistlog.NewOpLogger(gridDir)
	defer opLog.Close()

	var index *indexdb.SQLiteIndex
	if !*disableDB {
		index, err = indexdb.OpenSQLite(filepath.Join(gridDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer index.Close()
	}

	sinks := []world.OpSink{opLog}
	if index != nil {
		sinks = append(sinks, index)
	}

	w, err := world.New(world.Config{
		ID:               *gridID,
		ChunkSize:        tun.ChunkSize,
		DefaultCell:      tun.DefaultCell,
		Seed:             tun.Seed,
		MaxViewCells:     tun.MaxViewCells,
		SnapshotEveryOps: tun.SnapshotEveryOps,
	}, logger, multiSink(sinks))
	if err != nil {
		logger.Fatalf("new world: %v", err)
	}

	snapDir := filepath.Join(gridDir, "snapshots")
	w.OnSnapshot = func(snap snapshot.SnapshotV1) {
		p := snapshot.SnapshotPath(snapDir, snap.Header.Ops)
		if err := snapshot.WriteSnapshot(p, snap); err != nil {
			logger.Printf("write snapshot: %v", err)
			return
		}
		if index != nil {
			index.RecordSnapshot(p, snap, w.StateDigest())
		}
		logger.Printf("snapshot at %d ops: %s (%d chunks)", snap.Header.Ops, p, len(snap.Chunks))
	}

	if err := resume(w, *snapPath, *loadLatest, snapDir, logger); err != nil {
		logger.Fatalf("resume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = w.Run(ctx)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", ws.NewServer(w, tun.Limits, logger).Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("grid %s listening on %s (chunk_size=%d seed=%d)", *gridID, *addr, tun.ChunkSize, tun.Seed)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("listen: %v", err)
	}

	// The world loop owns the grid; wait for it to exit before reading
	// state off the main goroutine.
	stop()
	<-runDone

	// Final snapshot on the way out.
	final := w.ExportSnapshot()
	p := snapshot.SnapshotPath(snapDir, final.Header.Ops)
	if err := snapshot.WriteSnapshot(p, final); err != nil {
		logger.Printf("final snapshot: %v", err)
	} else {
		logger.Printf("final snapshot: %s", p)
	}
}

func resume(w *world.World, snapPath string, loadLatest bool, snapDir string, logger *log.Logger) error {
	p := strings.TrimSpace(snapPath)
	if p == "" && loadLatest {
		if latest, ok := snapshot.FindLatest(snapDir); ok {
			p = latest
		}
	}
	if p == "" {
		logger.Printf("starting fresh grid")
		return nil
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		return err
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return err
	}
	logger.Printf("resumed from %s (%d chunks, %d ops)", p, len(snap.Chunks), snap.Header.Ops)
	return nil
}

type fanoutSink []world.OpSink

func (f fanoutSink) WriteOp(e world.OpEntry) {
	for _, s := range f {
		s.WriteOp(e)
	}
}

func multiSink(sinks []world.OpSink) world.OpSink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return fanoutSink(sinks)
}
