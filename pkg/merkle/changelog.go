// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package merkle

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var changeLogMu sync.Mutex

// AppendChangeLog appends a line to <project>/.neurograph/changes.log for
// diagnosing incremental runs. Line format: ISO8601 + " " + message, so
// events for one file are greppable by path. Failures are ignored: the log
// is diagnostic only.
func AppendChangeLog(dotDir, message string) {
	if dotDir == "" {
		return
	}
	changeLogMu.Lock()
	defer changeLogMu.Unlock()
	if err := os.MkdirAll(dotDir, 0750); err != nil {
		return
	}
	logPath := filepath.Join(dotDir, "changes.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return
	}
	line := fmt.Sprintf("%s %s\n", time.Now().Format(time.RFC3339), message)
	_, _ = f.WriteString(line)
	_ = f.Close()
}
