// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
)

// DirChecker checks that the transfer work directory exists and is writable.
type DirChecker struct {
	name string
	path string
}

// NewDirChecker creates a checker for a writable directory.
func NewDirChecker(name, path string) *DirChecker {
	return &DirChecker{name: name, path: path}
}

func (c *DirChecker) Name() string { return c.name }

func (c *DirChecker) Check(_ context.Context) CheckResult {
	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CheckResult{Status: StatusUnhealthy, Error: "directory not found", Message: c.path}
		}
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "expected directory, got file", Message: c.path}
	}

	probe, err := os.CreateTemp(c.path, ".health-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: "directory is not writable", Message: err.Error()}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	return CheckResult{Status: StatusHealthy, Message: "directory writable"}
}

// HeartbeatChecker checks how long ago the update poll last succeeded.
// Older than maxAge is degraded, older than twice maxAge unhealthy.
type HeartbeatChecker struct {
	name   string
	last   func() time.Time
	maxAge time.Duration
	now    func() time.Time
}

// NewHeartbeatChecker creates a checker over a last-success timestamp source.
func NewHeartbeatChecker(name string, last func() time.Time, maxAge time.Duration) *HeartbeatChecker {
	return &HeartbeatChecker{name: name, last: last, maxAge: maxAge, now: time.Now}
}

func (c *HeartbeatChecker) Name() string { return c.name }

func (c *HeartbeatChecker) Check(_ context.Context) CheckResult {
	last := c.last()
	if last.IsZero() {
		return CheckResult{Status: StatusUnhealthy, Message: "no successful poll yet"}
	}
	now := c.now()
	age := now.Sub(last)
	msg := "last poll " + humanize.RelTime(last, now, "ago", "from now")
	switch {
	case age > 2*c.maxAge:
		return CheckResult{Status: StatusUnhealthy, Message: msg}
	case age > c.maxAge:
		return CheckResult{Status: StatusDegraded, Message: msg}
	}
	return CheckResult{Status: StatusHealthy, Message: msg}
}

// CapacityChecker reports transfer slot usage. A full pool is degraded.
type CapacityChecker struct {
	active func() int
	limit  int
}

// NewCapacityChecker creates a checker over the running transfer count.
func NewCapacityChecker(active func() int, limit int) *CapacityChecker {
	return &CapacityChecker{active: active, limit: limit}
}

func (c *CapacityChecker) Name() string { return "transfers" }

func (c *CapacityChecker) Check(_ context.Context) CheckResult {
	n := c.active()
	msg := fmt.Sprintf("%d of %d transfer slots in use", n, c.limit)
	if c.limit > 0 && n >= c.limit {
		return CheckResult{Status: StatusDegraded, Message: msg}
	}
	return CheckResult{Status: StatusHealthy, Message: msg}
}
