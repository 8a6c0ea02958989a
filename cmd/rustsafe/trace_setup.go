package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rustsafe/internal/trace"
)

// activeTracer is kept for crash dumps of the ring buffer.
var activeTracer trace.Tracer = trace.Nop

// traceConfig reads the --trace* persistent flags.
func traceConfig(cmd *cobra.Command) (trace.Config, error) {
	flags := cmd.Root().PersistentFlags()
	var cfg trace.Config

	output, _ := flags.GetString("trace")
	levelStr, _ := flags.GetString("trace-level")
	modeStr, _ := flags.GetString("trace-mode")
	formatStr, _ := flags.GetString("trace-format")
	cfg.RingSize, _ = flags.GetInt("trace-ring-size")
	cfg.Heartbeat, _ = flags.GetDuration("trace-heartbeat")
	cfg.OutputPath = output

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return cfg, err
	}
	// --trace без уровня означает phase
	if level == trace.LevelOff && output != "" && !flags.Changed("trace-level") {
		level = trace.LevelPhase
	}
	cfg.Level = level

	if cfg.Mode, err = trace.ParseMode(modeStr); err != nil {
		return cfg, err
	}
	if cfg.Format, err = trace.ParseFormat(formatStr); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setupTracing installs the tracer and a driver span named after the
// subcommand into the command context. The returned cleanup ends the span
// and closes the tracer.
func setupTracing(cmd *cobra.Command) (func(), error) {
	cfg, err := traceConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	activeTracer = tracer

	ctx, span := trace.Start(trace.WithTracer(cmd.Context(), tracer), trace.ScopeDriver, cmd.Name())
	cmd.SetContext(ctx)
	heartbeat := trace.StartHeartbeat(tracer, cfg.Heartbeat)

	return func() {
		heartbeat.Stop()
		span.End("")
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: %v\n", err)
		}
		activeTracer = trace.Nop
	}, nil
}

// dumpTraceOnPanic writes the ring buffer to stderr before re-panicking.
func dumpTraceOnPanic() {
	r := recover()
	if r == nil {
		return
	}
	if ring := trace.Ring(activeTracer); ring != nil {
		fmt.Fprintln(os.Stderr, "--- trace ring dump ---")
		_ = ring.Dump(os.Stderr, trace.FormatText)
	}
	panic(r)
}
