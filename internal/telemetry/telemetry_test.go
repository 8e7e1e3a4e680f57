// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestInitLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	logger, err := InitLogger(dir)
	if err != nil {
		t.Fatalf("InitLogger failed: %v", err)
	}
	logger.Info("hello", "component", "test")

	if _, err := os.Stat(filepath.Join(dir, "malichat.log")); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	tracer, meter, cleanup, err := Init(context.Background(), dir)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer cleanup()

	if tracer == nil || meter == nil {
		t.Fatal("tracer and meter must be non-nil")
	}

	_, span := tracer.Start(context.Background(), "test-span")
	span.End()
}
